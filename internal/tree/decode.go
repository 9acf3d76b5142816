package tree

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/vmihailenco/msgpack/v5"
)

// Format identifies a tree file encoding.
type Format uint8

const (
	FormatAuto Format = iota
	FormatJSON
	FormatYAML
	FormatMsgpack
	FormatXML
)

var ErrUnknownFormat = errors.New("unknown tree format")

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatMsgpack:
		return "msgpack"
	case FormatXML:
		return "xml"
	default:
		return "unknown"
	}
}

// ParseFormat converts a --input-format value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	case "xml":
		return FormatXML, nil
	default:
		return FormatAuto, fmt.Errorf("%w: %q (expected auto|json|yaml|msgpack|xml)", ErrUnknownFormat, s)
	}
}

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".msgpack", ".mp":
		return FormatMsgpack, true
	case ".xml":
		return FormatXML, true
	default:
		return FormatAuto, false
	}
}

// Decode reads a single tree in the given format. FormatAuto is not accepted
// here because a reader has no extension; use DecodeFile or pick a format.
func Decode(data []byte, format Format) (*Node, error) {
	return DecodeLimit(data, format, DefaultMaxDepth)
}

// DecodeLimit is Decode with an explicit nesting limit; maxDepth <= 0 means
// DefaultMaxDepth. Trees nested deeper fail with a *DepthError.
func DecodeLimit(data []byte, format Format, maxDepth int) (*Node, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	var root Node
	var err error
	switch format {
	case FormatJSON:
		if err = checkJSONDepth(data, maxDepth); err == nil {
			err = json.NewDecoder(bytes.NewReader(data)).Decode(&root)
		}
	case FormatYAML:
		if err = checkYAMLDepth(data, maxDepth); err == nil {
			err = yaml.Unmarshal(data, &root)
		}
	case FormatMsgpack:
		if err = checkMsgpackDepth(data, maxDepth); err == nil {
			err = msgpack.Unmarshal(data, &root)
		}
	case FormatXML:
		err = decodeXML(xml.NewDecoder(bytes.NewReader(data)), &root, maxDepth)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s tree: %w", format, err)
	}
	if root.Type == "" {
		return nil, fmt.Errorf("decode %s tree: root node has no type", format)
	}
	return &root, nil
}

// DecodeFile loads a tree file. With FormatAuto the extension decides.
func DecodeFile(path string, format Format) (*Node, []byte, error) {
	if format == FormatAuto {
		var ok bool
		format, ok = FormatFromPath(path)
		if !ok {
			return nil, nil, fmt.Errorf("%s: %w: cannot infer from extension", path, ErrUnknownFormat)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	root, err := Decode(data, format)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return root, data, nil
}

// Encode writes a tree in the given format.
func Encode(w io.Writer, root *Node, format Format) error {
	if root == nil {
		return errors.New("encode: nil tree")
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(root)
	case FormatYAML:
		data, err := yaml.Marshal(root)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(root)
	case FormatXML:
		enc := xml.NewEncoder(w)
		enc.Indent("", "  ")
		if err := enc.Encode(root); err != nil {
			return err
		}
		return enc.Flush()
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}
