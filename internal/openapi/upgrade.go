package openapi

import (
	"fmt"
	"strings"
)

var v2OperationMethods = []string{"get", "post", "put", "delete", "patch", "head", "options", "trace"}

// UpgradeV2 rewrites a Swagger 2.0 document tree into the OpenAPI 3.0 shape.
// The input is not modified.
func UpgradeV2(v2 map[string]any) map[string]any {
	doc, _ := deepCopy(v2).(map[string]any)

	doc["openapi"] = "3.0.0"
	delete(doc, "swagger")

	if host := asString(v2["host"]); host != "" {
		basePath := asString(v2["basePath"])
		schemes := asStringList(v2["schemes"])
		if len(schemes) == 0 {
			schemes = []string{"https"}
		}
		servers := make([]any, 0, len(schemes))
		for _, scheme := range schemes {
			servers = append(servers, map[string]any{"url": fmt.Sprintf("%s://%s%s", scheme, host, basePath)})
		}
		doc["servers"] = servers
	}
	delete(doc, "host")
	delete(doc, "basePath")
	delete(doc, "schemes")

	if defs, ok := v2["securityDefinitions"].(map[string]any); ok && len(defs) > 0 {
		schemes := map[string]any{}
		for name, d := range defs {
			def, _ := d.(map[string]any)
			if def == nil {
				continue
			}
			if s := upgradeSecurityDefinition(def); s != nil {
				schemes[name] = s
			}
		}
		components(doc)["securitySchemes"] = schemes
	}
	delete(doc, "securityDefinitions")

	if defs, ok := doc["definitions"].(map[string]any); ok && len(defs) > 0 {
		components(doc)["schemas"] = defs
	}
	delete(doc, "definitions")

	if params, ok := doc["parameters"].(map[string]any); ok && len(params) > 0 {
		components(doc)["parameters"] = params
	}
	delete(doc, "parameters")

	globalConsumes := asStringList(v2["consumes"])
	if len(globalConsumes) == 0 {
		globalConsumes = []string{"application/json"}
	}
	globalProduces := asStringList(v2["produces"])
	if len(globalProduces) == 0 {
		globalProduces = []string{"application/json"}
	}
	delete(doc, "consumes")
	delete(doc, "produces")

	if responses, ok := doc["responses"].(map[string]any); ok && len(responses) > 0 {
		upgradeResponses(responses, globalProduces)
		components(doc)["responses"] = responses
	}
	delete(doc, "responses")

	if paths, ok := doc["paths"].(map[string]any); ok {
		for _, pi := range paths {
			item, ok := pi.(map[string]any)
			if !ok {
				continue
			}
			pathParams := asList(item["parameters"])
			for _, method := range v2OperationMethods {
				op, ok := item[method].(map[string]any)
				if !ok {
					continue
				}
				upgradeOperation(op, pathParams, globalConsumes, globalProduces)
			}
			delete(item, "parameters")
		}
	}

	rewriteRefs(doc)
	return doc
}

func upgradeSecurityDefinition(def map[string]any) map[string]any {
	switch asString(def["type"]) {
	case "basic":
		return map[string]any{"type": "http", "scheme": "basic"}
	case "apiKey":
		return map[string]any{"type": "apiKey", "name": def["name"], "in": def["in"]}
	case "oauth2":
		scopes := def["scopes"]
		if scopes == nil {
			scopes = map[string]any{}
		}
		flows := map[string]any{}
		switch asString(def["flow"]) {
		case "implicit":
			flows["implicit"] = map[string]any{"authorizationUrl": def["authorizationUrl"], "scopes": scopes}
		case "password":
			flows["password"] = map[string]any{"tokenUrl": def["tokenUrl"], "scopes": scopes}
		case "application":
			flows["clientCredentials"] = map[string]any{"tokenUrl": def["tokenUrl"], "scopes": scopes}
		case "accessCode":
			flows["authorizationCode"] = map[string]any{
				"authorizationUrl": def["authorizationUrl"],
				"tokenUrl":         def["tokenUrl"],
				"scopes":           scopes,
			}
		}
		if len(flows) == 0 {
			return nil
		}
		return map[string]any{"type": "oauth2", "flows": flows}
	}
	return nil
}

func upgradeOperation(op map[string]any, pathParams []any, globalConsumes, globalProduces []string) {
	// Path-level first, operation-level second. Duplicates are kept.
	combined := make([]any, 0, len(pathParams))
	for _, p := range pathParams {
		combined = append(combined, deepCopy(p))
	}
	combined = append(combined, asList(op["parameters"])...)

	consumes := globalConsumes
	if c, ok := op["consumes"]; ok {
		consumes = asStringList(c)
	}
	produces := globalProduces
	if p, ok := op["produces"]; ok {
		produces = asStringList(p)
	}
	delete(op, "consumes")
	delete(op, "produces")

	var (
		bodySchema   any
		bodyRequired bool
		form         []map[string]any
		params       = make([]any, 0, len(combined))
	)
	for _, p := range combined {
		pm, ok := p.(map[string]any)
		if ok && asString(pm["in"]) == "body" {
			bodySchema = pm["schema"]
			bodyRequired, _ = pm["required"].(bool)
			continue
		}
		if ok && asString(pm["type"]) == "file" {
			pm["type"] = "string"
			pm["format"] = "binary"
		}
		if ok && asString(pm["in"]) == "formData" {
			form = append(form, pm)
			continue
		}
		if ok {
			liftParamSchema(pm)
		}
		params = append(params, p)
	}
	op["parameters"] = params

	switch {
	case bodySchema != nil:
		content := map[string]any{}
		for _, ct := range consumes {
			content[ct] = map[string]any{"schema": bodySchema}
		}
		op["requestBody"] = map[string]any{"required": bodyRequired, "content": content}
	case len(form) > 0:
		op["requestBody"] = formRequestBody(form, consumes)
	}

	if responses, ok := op["responses"].(map[string]any); ok {
		upgradeResponses(responses, produces)
	}
}

// upgradeResponses moves each response schema under content keyed by produces.
func upgradeResponses(responses map[string]any, produces []string) {
	for _, r := range responses {
		resp, ok := r.(map[string]any)
		if !ok {
			continue
		}
		schema, ok := resp["schema"]
		if !ok {
			continue
		}
		delete(resp, "schema")
		content := map[string]any{}
		for _, ct := range produces {
			content[ct] = map[string]any{"schema": schema}
		}
		resp["content"] = content
	}
}

// liftParamSchema mirrors the 2.0 inline type fields into a 3.x schema so
// flag kinds can be derived the same way for both versions.
func liftParamSchema(pm map[string]any) {
	if _, ok := pm["schema"]; ok {
		return
	}
	if _, ok := pm["type"]; !ok {
		return
	}
	schema := map[string]any{}
	for _, k := range []string{"type", "format", "items", "enum", "default"} {
		if v, ok := pm[k]; ok {
			schema[k] = deepCopy(v)
		}
	}
	pm["schema"] = schema
}

// formRequestBody folds formData parameters into an object schema keyed by
// the form media types the operation consumes.
func formRequestBody(form []map[string]any, consumes []string) map[string]any {
	props := map[string]any{}
	var required []any
	hasFile := false
	for _, pm := range form {
		name := asString(pm["name"])
		if name == "" {
			continue
		}
		prop := map[string]any{"type": pm["type"]}
		if f, ok := pm["format"]; ok {
			prop["format"] = f
			hasFile = hasFile || f == "binary"
		}
		if d, ok := pm["description"]; ok {
			prop["description"] = d
		}
		props[name] = prop
		if r, _ := pm["required"].(bool); r {
			required = append(required, name)
		}
	}
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}

	var types []string
	for _, ct := range consumes {
		if strings.HasPrefix(ct, "multipart/form-data") || strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
			types = append(types, ct)
		}
	}
	if len(types) == 0 {
		if hasFile {
			types = []string{"multipart/form-data"}
		} else {
			types = []string{"application/x-www-form-urlencoded"}
		}
	}
	content := map[string]any{}
	for _, ct := range types {
		content[ct] = map[string]any{"schema": schema}
	}
	return map[string]any{"required": len(required) > 0, "content": content}
}

var refRewrites = [][2]string{
	{"#/definitions/", "#/components/schemas/"},
	{"#/parameters/", "#/components/parameters/"},
	{"#/responses/", "#/components/responses/"},
}

func rewriteRefs(node any) {
	switch t := node.(type) {
	case map[string]any:
		for k, v := range t {
			if s, ok := v.(string); ok && k == "$ref" {
				for _, rw := range refRewrites {
					if strings.HasPrefix(s, rw[0]) {
						t[k] = rw[1] + strings.TrimPrefix(s, rw[0])
						break
					}
				}
				continue
			}
			rewriteRefs(v)
		}
	case []any:
		for _, v := range t {
			rewriteRefs(v)
		}
	}
}

func components(doc map[string]any) map[string]any {
	c, ok := doc["components"].(map[string]any)
	if !ok {
		c = map[string]any{}
		doc["components"] = c
	}
	return c
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = deepCopy(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = deepCopy(vv)
		}
		return out
	default:
		return v
	}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asList(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return nil
}

func asStringList(v any) []string {
	var out []string
	for _, item := range asList(v) {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
