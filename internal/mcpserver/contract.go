package mcpserver

// FrontmatterContract describes the frontmatter a document needs before it
// can be saved or published to Quail.
const FrontmatterContract = `# quailpub Frontmatter Contract

A document is published from its YAML frontmatter and its Markdown body.

## Structure

` + "```" + `markdown
---
slug: my-first-post                 # REQUIRED - english letters, digits and dashes
title: My first post                # OPTIONAL - defaults to the file name
tags: go, publishing                # OPTIONAL - string or YAML list of strings
datetime: 2024-05-06 08:00          # OPTIONAL - defaults to now
summary: One or two sentences.      # OPTIONAL - defaults to the start of the body
cover_image_url: assets/cover.png   # OPTIONAL - vault path or https URL
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. **The ` + "`---`" + ` fences must be the first line of the file.**
2. **` + "`slug`" + ` is required** and may only contain ` + "`A-Z a-z 0-9 -`" + `.
3. **` + "`tags`" + `** is either a comma separated string or a list of strings.
4. **` + "`datetime`" + `** accepts ` + "`YYYY-MM-DD`" + `, ` + "`YYYY-MM-DD HH:mm[:ss]`" + `,
   ` + "`YYYY/MM/DD[ HH:mm]`" + ` or RFC 3339. Values without a zone use local time.
5. **` + "`summary`" + `** is cut to 120 characters.
6. Other keys are kept in the file and ignored when publishing.

## Images

- Embed vault images with ` + "`![alt](relative/path.png)`" + ` or ` + "`![[name.png]]`" + `.
- Paths are resolved next to the document first, then from the vault root.
- Supported formats: jpg, jpeg, png, gif, bmp, webp, svg.
- Remote ` + "`http(s)://`" + ` images are left untouched.
- On save, every local image is uploaded and its reference rewritten to the
  hosted URL. A local ` + "`cover_image_url`" + ` is uploaded too.
- Use the ` + "`import_image`" + ` tool to copy a remote or data URI image into the vault.

## Actions

- ` + "`save_post`" + ` verifies the frontmatter, fills an empty summary or tags from
  the Quail composer, uploads images and creates or updates the post.
- ` + "`publish_post`" + ` saves, then makes the post public.
- ` + "`unpublish_post`" + ` and ` + "`deliver_post`" + ` act on the post named by ` + "`slug`" + `.
- ` + "`verify_frontmatter`" + ` and ` + "`preview_post`" + ` never touch the network.
`
