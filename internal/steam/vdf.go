package steam

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// VDFMap is a parsed Valve key-value block. Values are strings or nested VDFMaps.
type VDFMap map[string]any

// Map returns the nested block stored under key, or nil
func (m VDFMap) Map(key string) VDFMap {
	v, _ := m[key].(VDFMap)
	return v
}

// String returns the string value stored under key, or ""
func (m VDFMap) String(key string) string {
	v, _ := m[key].(string)
	return v
}

// ParseVDF reads Valve key-value text (libraryfolders.vdf, appmanifest_*.acf)
func ParseVDF(r io.Reader) (VDFMap, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(scanVDFTokens)

	var tokens []string
	for scanner.Scan() {
		tokens = append(tokens, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading vdf: %w", err)
	}

	p := &vdfParser{tokens: tokens}
	return p.block(true)
}

type vdfParser struct {
	tokens []string
	pos    int
}

// block reads key/value pairs until the closing brace, or the end of input
// for the top level
func (p *vdfParser) block(top bool) (VDFMap, error) {
	out := make(VDFMap)
	for p.pos < len(p.tokens) {
		key := p.tokens[p.pos]
		p.pos++
		if key == "}" {
			if top {
				return nil, fmt.Errorf("vdf: unexpected }")
			}
			return out, nil
		}
		if p.pos >= len(p.tokens) {
			return nil, fmt.Errorf("vdf: unexpected end after key %q", key)
		}

		value := p.tokens[p.pos]
		p.pos++
		if value != "{" {
			out[key] = value
			continue
		}
		inner, err := p.block(false)
		if err != nil {
			return nil, err
		}
		out[key] = inner
	}
	if !top {
		return nil, fmt.Errorf("vdf: unclosed block")
	}
	return out, nil
}

// scanVDFTokens splits input into quoted strings, bare words and braces
func scanVDFTokens(data []byte, atEOF bool) (int, []byte, error) {
	start := 0
	for start < len(data) && isVDFSpace(data[start]) {
		start++
	}
	if start == len(data) {
		return start, nil, nil
	}

	switch data[start] {
	case '{', '}':
		return start + 1, data[start : start+1], nil
	case '"':
		for i := start + 1; i < len(data); i++ {
			switch data[i] {
			case '\\':
				i++
			case '"':
				return i + 1, unescapeVDF(data[start+1 : i]), nil
			}
		}
		if atEOF {
			return 0, nil, fmt.Errorf("vdf: unclosed quote")
		}
		return start, nil, nil
	}

	end := start
	for end < len(data) && !isVDFSpace(data[end]) && data[end] != '"' && data[end] != '{' && data[end] != '}' {
		end++
	}
	if end == len(data) && !atEOF {
		return start, nil, nil
	}
	return end, data[start:end], nil
}

func isVDFSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// unescapeVDF resolves the \\ and \" escapes Steam writes in paths
func unescapeVDF(b []byte) []byte {
	if bytes.IndexByte(b, '\\') < 0 {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == '\\' && i+1 < len(b) {
			i++
		}
		out = append(out, b[i])
	}
	return out
}

// AppManifest holds the fields of an appmanifest_*.acf file emu needs
type AppManifest struct {
	AppID      string
	Name       string
	InstallDir string
}

// ParseAppManifest parses appmanifest_*.acf content
func ParseAppManifest(r io.Reader) (AppManifest, error) {
	root, err := ParseVDF(r)
	if err != nil {
		return AppManifest{}, err
	}
	state := root.Map("AppState")
	if state == nil {
		return AppManifest{}, fmt.Errorf("vdf: missing AppState")
	}
	return AppManifest{
		AppID:      state.String("appid"),
		Name:       state.String("name"),
		InstallDir: state.String("installdir"),
	}, nil
}
