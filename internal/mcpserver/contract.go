package mcpserver

// EmbedContract describes how inserted drawings appear in notes, so LLM
// consumers can place and later find them.
const EmbedContract = `# inkpad Drawing Embed Contract

Drawings are inserted into existing Markdown notes of the vault.

## Inserting

- Call ` + "`" + `insert_drawing` + "`" + ` with the note path (relative, ending in ` + "`" + `.md` + "`" + `).
- The user draws in the editor; the tool returns once the editor is closed.
- ` + "`" + `line` + "`" + ` is 1-based: the image is inserted as a new line before it.
  Omit it (or pass 0) to append at the end of the note.
- Only one drawing session runs at a time; a second call while one is open fails.

## Storage

- The image is a transparent, trimmed PNG stored in the shared
  ` + "`" + `attachments/` + "`" + ` directory (flat, no sub-folders).
- The note references it with an absolute path:
  ` + "`" + `![name.png](/attachments/name.png)` + "`" + `
- The file name in the link target is percent-encoded, so
  ` + "`" + `My drawing.png` + "`" + ` becomes ` + "`" + `/attachments/My%20drawing.png` + "`" + `.
- Do **not** rewrite the reference as a relative path.

## Reading back

- ` + "`" + `note_drawings` + "`" + ` lists the attachment images a note embeds, with line numbers.
- ` + "`" + `list_drawings` + "`" + ` lists the delivery history, newest first.
`
