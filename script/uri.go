package script

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/ratazzi/hola/resource"
)

// ParsedSource is the result of resolving a source-URI to
// bytes plus the encoding those bytes are in.
type ParsedSource struct {
	Data     []byte
	Encoding resource.SourceEncoding
}

// ParseSourceURI implements the source-URI grammar shared by add_aws_kms's
// parsed_source and remote-file-style inputs:
//
//	fileb://P  -> raw bytes of file at P                  (encoding binary)
//	file://P   -> base64 text of file at P, decoded        (encoding base64)
//	base64:D   -> inline literal base64 payload D          (encoding base64)
//	otherwise  -> plain absolute path, encoding chosen by defaultEncoding
func ParseSourceURI(uri string, defaultEncoding resource.SourceEncoding) (ParsedSource, error) {
	switch {
	case strings.HasPrefix(uri, "fileb://"):
		data, err := os.ReadFile(uri[len("fileb://"):])
		if err != nil {
			return ParsedSource{}, fmt.Errorf("reading fileb:// source: %w", err)
		}
		return ParsedSource{Data: data, Encoding: resource.EncodingBinary}, nil

	case strings.HasPrefix(uri, "file://"):
		raw, err := os.ReadFile(uri[len("file://"):])
		if err != nil {
			return ParsedSource{}, fmt.Errorf("reading file:// source: %w", err)
		}
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return ParsedSource{}, fmt.Errorf("decoding base64 content of file:// source: %w", err)
		}
		return ParsedSource{Data: decoded, Encoding: resource.EncodingBase64}, nil

	case strings.HasPrefix(uri, "base64:"):
		decoded, err := base64.StdEncoding.DecodeString(uri[len("base64:"):])
		if err != nil {
			return ParsedSource{}, fmt.Errorf("decoding inline base64: source: %w", err)
		}
		return ParsedSource{Data: decoded, Encoding: resource.EncodingBase64}, nil

	default:
		data, err := os.ReadFile(uri)
		if err != nil {
			return ParsedSource{}, fmt.Errorf("reading plain path source: %w", err)
		}
		enc := defaultEncoding
		if enc == "" {
			enc = resource.EncodingBinary
		}
		if enc == resource.EncodingBase64 {
			decoded, derr := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
			if derr != nil {
				return ParsedSource{}, fmt.Errorf("decoding base64 content of plain path source: %w", derr)
			}
			data = decoded
		}
		return ParsedSource{Data: data, Encoding: enc}, nil
	}
}

// DefaultSourceEncoding returns the default source encoding for an aws_kms
// action: decrypt defaults to base64, encrypt to binary.
func DefaultSourceEncoding(action string) resource.SourceEncoding {
	if action == "encrypt" {
		return resource.EncodingBinary
	}
	return resource.EncodingBase64
}

// DefaultTargetEncoding is the dual of DefaultSourceEncoding.
func DefaultTargetEncoding(action string) resource.SourceEncoding {
	if action == "encrypt" {
		return resource.EncodingBase64
	}
	return resource.EncodingBinary
}
