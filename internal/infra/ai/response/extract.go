package response

import (
	"encoding/json"
	"errors"
	"regexp"
	"slices"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
)

// ErrNoJSON means the reply contains no brace-delimited candidate at all.
var ErrNoJSON = errors.New("no json object in reply")

// ErrInvalidJSON means every candidate failed strict decoding.
var ErrInvalidJSON = errors.New("reply json is malformed")

var fenceRe = regexp.MustCompile("```[A-Za-z0-9_-]*")

// StripFences removes markdown code fence markers, keeping their content.
func StripFences(text string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
}

// Candidates returns the substrings of text that may hold the JSON payload, in
// the order they should be tried: the balanced object starting at the first
// '{', then the greedy span from the first '{' to the last '}' when it differs.
func Candidates(text string) []string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil
	}
	var out []string
	if end := matchBrace(text, start); end > start {
		out = append(out, text[start:end+1])
	}
	if last := strings.LastIndexByte(text, '}'); last > start {
		greedy := text[start : last+1]
		if len(out) == 0 || out[0] != greedy {
			out = append(out, greedy)
		}
	}
	return out
}

// matchBrace returns the index of the '}' closing the '{' at start, skipping
// braces inside JSON strings. It returns -1 when the object never closes.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Parser extracts one JSON object from free text produced by the AI service.
type Parser struct {
	// Repair runs candidates that fail strict decoding through jsonrepair
	// before giving up.
	Repair bool
	logger *zap.Logger
}

func NewParser(repair bool, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{Repair: repair, logger: logger}
}

// Decode locates the payload in text and strictly decodes it into v. The
// returned error is always a *failure.Error of KindParse.
func (p *Parser) Decode(text string, v any) error {
	payload, err := p.Locate(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return failure.New(failure.KindParse, "decode json", err)
	}
	return nil
}

// Locate returns the first candidate that is syntactically valid JSON. The raw
// reply is tried before its fence-stripped form so fence markers inside string
// values survive.
func (p *Parser) Locate(text string) ([]byte, error) {
	candidates := Candidates(text)
	for _, c := range Candidates(StripFences(text)) {
		if !slices.Contains(candidates, c) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, failure.New(failure.KindParse, "extract json", ErrNoJSON)
	}
	for _, c := range candidates {
		if json.Valid([]byte(c)) {
			return []byte(c), nil
		}
	}
	if p.Repair {
		for _, c := range candidates {
			fixed, err := jsonrepair.JSONRepair(c)
			if err != nil || !json.Valid([]byte(fixed)) {
				continue
			}
			p.logger.Debug("ai reply decoded after json repair", zap.Int("length", len(fixed)))
			return []byte(fixed), nil
		}
	}
	return nil, failure.New(failure.KindParse, "decode json", ErrInvalidJSON)
}
