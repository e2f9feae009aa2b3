package mcpserver

// MarkupFormat describes the Markdown article format LLM consumers should
// follow when creating articles.
const MarkupFormat = `# Langthil Markup Format

Every article submitted to Langthil MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # REQUIRED, at most 50 characters
publish: true                       # OPTIONAL, unpublished articles are drafts
nsfw: false                         # OPTIONAL, hides the body behind a content warning
spoiler: false                      # OPTIONAL
tags:                               # OPTIONAL, YAML list of tag names
  - beasts
---

Body text in standard Markdown.

Use [[wikilinks]] to reference other articles.
Use [[target|label]] for display text that differs from the target.
` + "```" + `

## Paths

1. An article lives at ` + "`" + `namespace/slug` + "`" + `, e.g. ` + "`" + `lore/beasts/red-dragon` + "`" + `.
   Namespaces nest with ` + "`" + `/` + "`" + `; the root namespace is empty.
2. Paths are normalized: lowercase, whitespace and punctuation become ` + "`" + `-` + "`" + `,
   anything outside ` + "`" + `[a-z0-9_-]` + "`" + ` is dropped. ` + "`" + `Red Dragon` + "`" + ` becomes ` + "`" + `red-dragon` + "`" + `.
3. Lookups ignore case.
4. Slugs starting with ` + "`" + `special:` + "`" + ` are system pages. They are always published
   and never carry content warnings. ` + "`" + `special:404` + "`" + ` is shown for missing articles.

## Links

- ` + "`" + `[[dragons]]` + "`" + ` is relative to the namespace of the article containing it.
- ` + "`" + `[[/lore/dragons]]` + "`" + ` (leading slash) is absolute.

## Redirects

An article whose body starts with ` + "`" + `[[REDIRECT:/target/path]]` + "`" + ` sends readers to
the target. Moving an article leaves such a redirect at the old path. Chains of redirects
stop at the first intermediate redirect, which is shown instead of being followed.

## Templates

An article with slug ` + "`" + `_template` + "`" + ` seeds new articles in its namespace. When a
namespace has none, the nearest enclosing namespace's template is used, ending at the root.

## Example

` + "```" + `markdown
---
title: Red Dragon
publish: true
tags:
  - beasts
---

# Red Dragon

The largest of the [[/lore/beasts/dragons|dragons]], often found near [[volcanoes]].
` + "```" + `
`
