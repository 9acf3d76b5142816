package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// emitter
	EmitInfo               Code = 1000
	EmitUnknownLoopKind    Code = 1001
	EmitUnresolvedOperator Code = 1002
	EmitMissingAttribute   Code = 1003
	EmitUnknownNodeType    Code = 1004
	EmitDuplicateAssign    Code = 1005
	EmitStructure          Code = 1100
	EmitInvariant          Code = 1200

	// tree files
	IOLoadFileError   Code = 4001
	IODecodeTreeError Code = 4002
	IOWriteFileError  Code = 4003

	// observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:            "Unknown error",
	EmitInfo:               "Emitter information",
	EmitUnknownLoopKind:    "Unknown loop kind",
	EmitUnresolvedOperator: "Operator not found in operator table",
	EmitMissingAttribute:   "Required node attribute is missing",
	EmitUnknownNodeType:    "Unknown node type",
	EmitDuplicateAssign:    "Definition has more than one assignment",
	EmitStructure:          "Tree structure exceeds limits",
	EmitInvariant:          "Emitted text violates an output invariant",
	IOLoadFileError:        "I/O load file error",
	IODecodeTreeError:      "Tree file could not be decoded",
	IOWriteFileError:       "I/O write file error",
	ObsInfo:                "Observability information",
	ObsTimings:             "Pipeline timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("EMT%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
