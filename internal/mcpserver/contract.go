package mcpserver

// PostFormatContract describes the canonical article format that LLM
// consumers should follow when creating or editing posts.
const PostFormatContract = `# Ansuz Article Format Contract

Every Markdown article managed by Ansuz MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # REQUIRED – articles without one are not indexed
date: 2025-11-14T10:00:00+08:00    # RECOMMENDED – ISO-8601; bare YYYY-MM-DD also accepted
description: One-line summary      # OPTIONAL – shown in listings and search
tags:                              # OPTIONAL – YAML list; a bare string is accepted
  - tag-one
categories:
  - category-one
draft: true                        # OPTIONAL – articles without it are drafts
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. **YAML frontmatter is mandatory for metadata.** The ` + "```" + `---` + "```" + ` fences must
   be the first thing in the file. A file without frontmatter is treated as
   plain body with empty metadata.
2. **` + "`" + `title` + "`" + ` is required** for the article to appear in listings.
3. **` + "`" + `draft` + "`" + ` defaults to true.** Publishing is done through the
   publish_post tool, never by editing the flag by hand: publishing also
   stamps ` + "`" + `publishDate` + "`" + ` (UTC+8) exactly once.
4. **Tags and categories** may be authored as a single string or a list;
   both are normalised to lists.
5. **File layout** follows Hugo page bundles: ` + "`" + `post/<date>-<slug>/index.md` + "`" + `
   with images in a sibling ` + "`" + `pics/` + "`" + ` directory, referenced relatively:
   ` + "`" + `![alt](pics/image.png)` + "`" + `.
6. **Encoding** is UTF-8.
`
