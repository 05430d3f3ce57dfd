package mcpserver

// BplFormatContract describes the playlist formats the library accepts so
// LLM consumers can read and write them correctly.
const BplFormatContract = `# stk Playlist Format Contract

A playlist (BPL) is an ordered list of recording files. Each entry may carry
sections: time windows inside the recording. The file format follows the
extension of the playlist path.

## XML (` + "`.bpl`, `.xml`" + `)

` + "```" + `xml
<?xml version="1.0" encoding="UTF-8"?>
<BatchList>
    <BatchEntry fileName="\\server\share\drive_001.rec">
        <SectionList>
            <Section startTime="1000" endTime="2500R"/>
        </SectionList>
    </BatchEntry>
    <BatchEntry fileName="D:\local\drive_002.rec"/>
</BatchList>
` + "```" + `

- The root element is ` + "`BatchList`" + `; every ` + "`BatchEntry`" + ` needs ` + "`fileName`" + `.
- ` + "`startTime`" + ` and ` + "`endTime`" + ` are integers. A trailing ` + "`R`" + ` marks the
  bound as relative to the recording start.
- Only XML keeps sections.

## INI (` + "`.ini`" + `)

` + "```" + `ini
[SimBatch]
FileCount=2
File0="\\\\server\\share\\drive_001.rec"
File1="D:\\local\\drive_002.rec"
` + "```" + `

- Values are quoted and backslashes are doubled.

## TXT (` + "`.txt`" + `)

One recording path per line. Blank lines are ignored.

## Path comparison

Set operations (` + "`and`, `or`, `xor`, `sub`" + `) compare paths case-insensitively
and drop the domain after a UNC server name, so
` + "`\\\\srv.example.com\\share\\a.rec`" + ` equals ` + "`\\\\SRV\\share\\a.rec`" + `. Pass
` + "`strict`" + ` to compare the exact strings. Results never carry sections.
`
