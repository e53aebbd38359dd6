package registry

import (
	"github.com/juju/errors"
)

const (
	BindingKV      = "kv_namespace"
	BindingD1      = "d1_database"
	BindingR2      = "r2_bucket"
	BindingAI      = "ai"
	BindingService = "service"
)

// BuiltinVersion identifies the output of the builtin strategies. Bump it with
// every change to their generated code so cached artifacts are not reused.
const BuiltinVersion = "builtin/2"

var builtin = MustNew(
	&NodeType{
		Name:         "entry",
		Role:         RoleEntry,
		OutputPorts:  []Port{{Name: "payload", Type: "object"}},
		PresetOutput: map[string]any{},
		Codegen:      Lines("const output = payload;"),
	},
	&NodeType{
		Name:         "return",
		Role:         RoleTerminal,
		ConfigSchema: []FieldSchema{{Name: "value", Type: "any", Description: "value returned by the run"}},
		InputPorts:   []Port{{Name: "in", Type: "any"}},
		Codegen:      Lines(`const output = input["value"] === undefined ? input : input["value"];`),
	},
	&NodeType{
		Name: "http-request",
		ConfigSchema: []FieldSchema{
			{Name: "url", Type: "string", Required: true},
			{Name: "method", Type: "string"},
			{Name: "headers", Type: "object"},
			{Name: "body", Type: "any"},
		},
		InputPorts:   []Port{{Name: "in", Type: "any"}},
		OutputPorts:  []Port{{Name: "out", Type: "object"}},
		PresetOutput: map[string]any{"status": 200, "ok": true, "body": map[string]any{}},
		Codegen: Lines(
			`const response = await fetch(String(input["url"]), {`,
			`  method: String(input["method"] ?? "GET"),`,
			`  headers: input["headers"] as Record<string, string> | undefined,`,
			`  body: input["body"] === undefined ? undefined : JSON.stringify(input["body"]),`,
			`});`,
			`const raw = await response.text();`,
			`let body: unknown = raw;`,
			`try {`,
			`  body = JSON.parse(raw);`,
			`} catch {`,
			`  body = raw;`,
			`}`,
			`const output = { status: response.status, ok: response.ok, body };`,
		),
	},
	&NodeType{
		Name: "kv-put",
		ConfigSchema: []FieldSchema{
			{Name: "namespace", Type: "binding", Required: true},
			{Name: "key", Type: "string", Required: true},
			{Name: "value", Type: "any", Required: true},
		},
		InputPorts:       []Port{{Name: "in", Type: "any"}},
		OutputPorts:      []Port{{Name: "out", Type: "object"}},
		PresetOutput:     map[string]any{"key": "", "written": true},
		RequiredBindings: bindingFromConfig("namespace", BindingKV, "put key", ""),
		Codegen: envCodegen(BindingKV, func(env string, gc *GenContext) []string {
			key, value := gc.Input("key"), gc.Input("value")
			return []string{
				`const value = typeof ` + value + ` === "string" ? ` + value + ` : JSON.stringify(` + value + `);`,
				`await ` + env + `.put(String(` + key + `), value);`,
				`const output = { key: ` + key + `, written: true };`,
			}
		}),
	},
	&NodeType{
		Name: "kv-get",
		ConfigSchema: []FieldSchema{
			{Name: "namespace", Type: "binding", Required: true},
			{Name: "key", Type: "string", Required: true},
		},
		InputPorts:       []Port{{Name: "in", Type: "any"}},
		OutputPorts:      []Port{{Name: "out", Type: "object"}},
		PresetOutput:     map[string]any{"key": "", "value": ""},
		RequiredBindings: bindingFromConfig("namespace", BindingKV, "get key", ""),
		Codegen: envCodegen(BindingKV, func(env string, gc *GenContext) []string {
			return []string{
				`const value = await ` + env + `.get(String(` + gc.Input("key") + `));`,
				`const output = { key: ` + gc.Input("key") + `, value };`,
			}
		}),
	},
	&NodeType{
		Name: "d1-query",
		ConfigSchema: []FieldSchema{
			{Name: "database", Type: "binding", Required: true},
			{Name: "query", Type: "string", Required: true},
			{Name: "params", Type: "array"},
		},
		InputPorts:       []Port{{Name: "in", Type: "any"}},
		OutputPorts:      []Port{{Name: "out", Type: "object"}},
		PresetOutput:     map[string]any{"results": []any{}, "count": 0},
		RequiredBindings: bindingFromConfig("database", BindingD1, "run query", ""),
		Codegen: envCodegen(BindingD1, func(env string, gc *GenContext) []string {
			params := gc.Input("params")
			return []string{
				`const params = Array.isArray(` + params + `) ? ` + params + ` : [];`,
				`const result = await ` + env + `.prepare(String(` + gc.Input("query") + `)).bind(...params).all();`,
				`const output = { results: result.results, count: result.results.length };`,
			}
		}),
	},
	&NodeType{
		Name: "r2-put",
		ConfigSchema: []FieldSchema{
			{Name: "bucket", Type: "binding", Required: true},
			{Name: "key", Type: "string", Required: true},
			{Name: "value", Type: "any", Required: true},
		},
		InputPorts:       []Port{{Name: "in", Type: "any"}},
		OutputPorts:      []Port{{Name: "out", Type: "object"}},
		PresetOutput:     map[string]any{"key": "", "written": true},
		RequiredBindings: bindingFromConfig("bucket", BindingR2, "put object", ""),
		Codegen: envCodegen(BindingR2, func(env string, gc *GenContext) []string {
			key, value := gc.Input("key"), gc.Input("value")
			return []string{
				`const value = typeof ` + value + ` === "string" ? ` + value + ` : JSON.stringify(` + value + `);`,
				`await ` + env + `.put(String(` + key + `), value);`,
				`const output = { key: ` + key + `, written: true };`,
			}
		}),
	},
	&NodeType{
		Name: "r2-get",
		ConfigSchema: []FieldSchema{
			{Name: "bucket", Type: "binding", Required: true},
			{Name: "key", Type: "string", Required: true},
		},
		InputPorts:       []Port{{Name: "in", Type: "any"}},
		OutputPorts:      []Port{{Name: "out", Type: "object"}},
		PresetOutput:     map[string]any{"key": "", "body": ""},
		RequiredBindings: bindingFromConfig("bucket", BindingR2, "get object", ""),
		Codegen: envCodegen(BindingR2, func(env string, gc *GenContext) []string {
			return []string{
				`const object = await ` + env + `.get(String(` + gc.Input("key") + `));`,
				`const output = object === null ? null : { key: ` + gc.Input("key") + `, body: await object.text() };`,
			}
		}),
	},
	&NodeType{
		Name: "ai-run",
		ConfigSchema: []FieldSchema{
			{Name: "binding", Type: "binding", Description: "defaults to AI"},
			{Name: "model", Type: "string", Required: true},
			{Name: "prompt", Type: "string", Required: true},
		},
		InputPorts:       []Port{{Name: "in", Type: "any"}},
		OutputPorts:      []Port{{Name: "out", Type: "object"}},
		PresetOutput:     map[string]any{"response": ""},
		RequiredBindings: bindingFromConfig("binding", BindingAI, "run model", "AI"),
		Codegen: envCodegen(BindingAI, func(env string, gc *GenContext) []string {
			return []string{
				`const output = await ` + env + `.run(String(` + gc.Input("model") + `), { prompt: String(` + gc.Input("prompt") + `) });`,
			}
		}),
	},
	&NodeType{
		Name: "service-call",
		ConfigSchema: []FieldSchema{
			{Name: "service", Type: "binding", Required: true},
			{Name: "path", Type: "string"},
			{Name: "method", Type: "string"},
			{Name: "body", Type: "any"},
		},
		InputPorts:       []Port{{Name: "in", Type: "any"}},
		OutputPorts:      []Port{{Name: "out", Type: "object"}},
		PresetOutput:     map[string]any{"status": 200, "body": ""},
		RequiredBindings: bindingFromConfig("service", BindingService, "fetch", ""),
		Codegen: envCodegen(BindingService, func(env string, gc *GenContext) []string {
			return []string{
				`const response = await ` + env + `.fetch("https://service" + String(` + gc.Input("path") + ` ?? "/"), {`,
				`  method: String(` + gc.Input("method") + ` ?? "POST"),`,
				`  body: ` + gc.Input("body") + ` === undefined ? undefined : JSON.stringify(` + gc.Input("body") + `),`,
				`});`,
				`const output = { status: response.status, body: await response.text() };`,
			}
		}),
	},
	&NodeType{
		Name:         "transform",
		ConfigSchema: []FieldSchema{{Name: "*", Type: "any", Description: "every field becomes an output field"}},
		InputPorts:   []Port{{Name: "in", Type: "any"}},
		OutputPorts:  []Port{{Name: "out", Type: "object"}},
		PresetOutput: map[string]any{},
		Codegen:      Lines("const output = { ...input };"),
	},
	&NodeType{
		Name:         "log",
		ConfigSchema: []FieldSchema{{Name: "message", Type: "string", Required: true}},
		InputPorts:   []Port{{Name: "in", Type: "any"}},
		OutputPorts:  []Port{{Name: "out", Type: "object"}},
		PresetOutput: map[string]any{"message": ""},
		Codegen: Lines(
			`console.info(String(input["message"]));`,
			`const output = { message: input["message"] };`,
		),
	},
	&NodeType{
		Name:         "sleep",
		ConfigSchema: []FieldSchema{{Name: "milliseconds", Type: "number", Required: true}},
		InputPorts:   []Port{{Name: "in", Type: "any"}},
		OutputPorts:  []Port{{Name: "out", Type: "object"}},
		PresetOutput: map[string]any{"slept": 0},
		Codegen: Lines(
			`const ms = Math.max(0, Number(input["milliseconds"] ?? 0));`,
			`await new Promise((resolve) => setTimeout(resolve, ms));`,
			`const output = { slept: ms };`,
		),
	},
	&NodeType{
		Name:    "condition",
		Control: ControlBranch,
		ConfigSchema: []FieldSchema{
			{Name: "left", Type: "any", Required: true},
			{Name: "operator", Type: "string", Description: "equals, notEquals, greaterThan, lessThan, contains, truthy"},
			{Name: "right", Type: "any"},
		},
		InputPorts:   []Port{{Name: "in", Type: "any"}},
		OutputPorts:  []Port{{Name: "true", Type: "any"}, {Name: "false", Type: "any"}},
		PresetOutput: map[string]any{"branch": "true", "matched": true},
		Codegen: Lines(
			`const left = input["left"];`,
			`const right = input["right"];`,
			`let matched = false;`,
			`switch (String(input["operator"] ?? "truthy")) {`,
			`  case "equals": matched = left === right; break;`,
			`  case "notEquals": matched = left !== right; break;`,
			`  case "greaterThan": matched = Number(left) > Number(right); break;`,
			`  case "lessThan": matched = Number(left) < Number(right); break;`,
			`  case "contains": matched = String(left).includes(String(right)); break;`,
			`  default: matched = Boolean(left);`,
			`}`,
			`const output = { branch: matched ? "true" : "false", matched };`,
		),
	},
	&NodeType{
		Name:         "for-each",
		Control:      ControlLoop,
		ConfigSchema: []FieldSchema{{Name: "items", Type: "array", Required: true}},
		InputPorts:   []Port{{Name: "in", Type: "any"}},
		OutputPorts:  []Port{{Name: "body", Type: "any"}, {Name: "done", Type: "any"}},
		// item and index are refreshed by the emitted loop on every iteration
		PresetOutput: map[string]any{"items": []any{}, "count": 0, "item": nil, "index": 0},
		Codegen: Lines(
			`const items: unknown[] = Array.isArray(input["items"]) ? input["items"] : [];`,
			`const output = { items, count: items.length };`,
		),
	},
).Versioned(BuiltinVersion)

// Builtin returns the registry of the node types shipped with the compiler.
func Builtin() *Registry {
	return builtin
}

// envCodegen resolves the binding accessor before rendering body.
func envCodegen(bindingType string, body func(env string, gc *GenContext) []string) CodegenStrategy {
	return CodegenFunc(func(gc *GenContext) ([]string, error) {
		env, err := gc.Env(bindingType)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return body(env, gc), nil
	})
}
