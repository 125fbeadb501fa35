package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"bugscope/internal/oracle"
	"bugscope/internal/search"
)

// DefaultRetries is how many times extraction is attempted before giving up.
const DefaultRetries = 3

const proxyPrompt = `You are a helpful assistant that retrieves API calls and bug locations from a text into json format.
The text will consist of two parts:
1. do we need more context?
2. where are bug locations?
Extract API calls from question 1 (leave empty if not exist) and bug locations from question 2 (leave empty if not exist).

The API calls include:
search_class(class_name: str)
search_class_in_file(class_name: str, file_name: str)
search_method_in_file(method_name: str, file_path: str)
search_method_in_class(method_name: str, class_name: str)
search_method(method_name: str)
search_code(code_str: str)
search_code_in_file(code_str: str, file_path: str)
get_code_around_line(file_path: str, line_no: int, window_size: int)

Provide your answer in JSON structure like this, you should ignore the argument placeholders in api calls.
For example, search_code(code_str="str") should be search_code("str")
search_method_in_file("method_name", "path.to.file") should be search_method_in_file("method_name", "path/to/file")

{
    "API_calls": ["api_call_1(args)", "api_call_2(args)", ...],
    "bug_locations":[{"file": "path/to/file", "class": "class_name", "method": "method_name"}, {"file": "path/to/file", "class": "class_name", "method": "method_name"} ... ]
}

NOTE: a bug location should at least has a "class" or "method".
`

const commandSchema = `{
    "$schema": "https://json-schema.org/draft/2020-12/schema",
    "type": "object",
    "properties": {
        "API_calls": {
            "type": "array",
            "items": {"type": "string"}
        },
        "bug_locations": {
            "type": "array",
            "items": {
                "type": "object",
                "properties": {
                    "file": {"type": "string"},
                    "class": {"type": "string"},
                    "method": {"type": "string"}
                }
            }
        }
    }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func commandPayloadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("command.schema.json", strings.NewReader(commandSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("command.schema.json")
	})
	return compiledSchema, schemaErr
}

// Call is one parsed and arity-checked query call.
type Call struct {
	Raw  string   `json:"raw"`
	Name string   `json:"name"`
	Args []string `json:"args"`
}

// Location is one proposed bug location as extracted from the oracle text.
type Location struct {
	File   string `json:"file"`
	Class  string `json:"class"`
	Method string `json:"method"`
}

// Command is the validated outcome of one extraction: either query calls to
// execute or bug locations to resolve, never both required.
type Command struct {
	Calls     []Call     `json:"api_calls"`
	Locations []Location `json:"bug_locations"`
}

type commandPayload struct {
	APICalls     []string   `json:"API_calls"`
	BugLocations []Location `json:"bug_locations"`
}

// Validator turns free-form oracle text into a validated Command by asking
// the oracle to reformat it as JSON, retrying on malformed output.
type Validator struct {
	oracle  oracle.Oracle
	retries int
}

// NewValidator creates a validator with the default retry budget.
func NewValidator(o oracle.Oracle) *Validator {
	return NewValidatorWithRetries(o, DefaultRetries)
}

// NewValidatorWithRetries creates a validator with an explicit retry budget.
func NewValidatorWithRetries(o oracle.Oracle, retries int) *Validator {
	if retries <= 0 {
		retries = DefaultRetries
	}
	return &Validator{oracle: o, retries: retries}
}

// Extract asks the oracle to reformat text into the command JSON and
// validates the result. Each attempt runs in a fresh two-message thread with
// the identical prompt; malformed output is treated as noise, not as a
// reason to change strategy. All attempted threads are returned for audit.
// A nil Command with nil error means every attempt produced invalid output.
func (v *Validator) Extract(ctx context.Context, text string) (*Command, []*oracle.Transcript, error) {
	var threads []*oracle.Transcript

	for attempt := 1; attempt <= v.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, threads, err
		}
		log.Printf("proxy: selecting search APIs in json, try %d of %d", attempt, v.retries)

		thread := oracle.NewTranscript()
		thread.AddSystem(proxyPrompt)
		thread.AddUser(text)

		resText, err := v.oracle.Chat(ctx, thread.Messages())
		if err != nil {
			return nil, threads, err
		}
		thread.AddAssistant(resText)
		threads = append(threads, thread)

		cmd, diagnosis := parseCommand(resText)
		if cmd == nil {
			log.Printf("proxy: %s, will retry", diagnosis)
			continue
		}
		return cmd, threads, nil
	}
	return nil, threads, nil
}

// parseCommand decodes and validates one oracle response. A nil Command
// means the response was invalid; the diagnosis explains why.
func parseCommand(resText string) (*Command, string) {
	raw := stripCodeFences(resText)

	var anyPayload any
	if err := json.Unmarshal([]byte(raw), &anyPayload); err != nil {
		return nil, "invalid json"
	}

	schema, err := commandPayloadSchema()
	if err != nil {
		return nil, fmt.Sprintf("schema compilation failed: %v", err)
	}
	if err := schema.Validate(anyPayload); err != nil {
		return nil, "json does not match the command schema"
	}
	if _, ok := anyPayload.(map[string]any); !ok {
		return nil, "json is not an object"
	}

	var payload commandPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, "invalid json"
	}

	if len(payload.APICalls) == 0 {
		if len(payload.BugLocations) == 0 {
			return nil, "both API_calls and bug_locations are empty"
		}
		for _, loc := range payload.BugLocations {
			if loc.Class == "" && loc.Method == "" {
				return nil, "bug location not detailed enough"
			}
		}
		return &Command{Locations: payload.BugLocations}, ""
	}

	var calls []Call
	for _, apiCall := range payload.APICalls {
		name, args, err := ParseCall(apiCall)
		if err != nil {
			return nil, "every API call must be of form api_call(arg1, ..., argn)"
		}
		prim, ok := search.Lookup(name)
		if !ok {
			return nil, fmt.Sprintf("the API call '%s' calls a non-existent function", apiCall)
		}
		if len(args) != prim.Arity {
			return nil, fmt.Sprintf("the API call '%s' has wrong number of arguments", apiCall)
		}
		calls = append(calls, Call{Raw: apiCall, Name: name, Args: args})
	}
	return &Command{Calls: calls, Locations: payload.BugLocations}, ""
}

// stripCodeFences removes a surrounding markdown code fence, which chat
// models add around JSON even when told not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl != -1 {
		// drop a language tag such as json
		first := strings.TrimSpace(s[:nl])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}[]") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
