package mcpserver

// NoteFormat describes the on-disk layout of a note file.
const NoteFormat = `# Year Wheel Note Format

Notes live under ` + "`<year>/<id>.md`" + ` in the vault. Each file starts with a
YAML frontmatter block followed by the Markdown body.

` + "```yaml" + `
---
id: 3f2a9c1e
date: {year: 2024, month: 3, day: 14}
title: Pi day
image: /api/images/3f2a-cover.png   # optional
position: {x: 1000, y: 700}          # card top-left, canvas coordinates
size: {width: 200, height: 120}
created: 2024-03-14T09:00:00Z
updated: 2024-03-14T09:00:00Z
connectionLine:                      # present only after a manual edit
  isCustom: true
  pathPoints:
    - {x: 980, y: 760}
    - {x: 940, y: 760}
    - {x: 940, y: 420}
  lastModified: 1710406800000
---
` + "```" + `

## Rules

- ` + "`date`" + ` must be a real calendar day; it selects the anchor on the wheel.
- ` + "`pathPoints`" + ` runs from the card edge to the day anchor. Consecutive
  points share an x or a y coordinate; the path is orthogonal.
- Changing the date of a note discards its custom connector.
- Use the reset_connector tool instead of editing ` + "`connectionLine`" + ` by hand.
`
