package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jeffsasaki/regression-lab/model"
)

const maxBodyBytes = 1 << 20

const (
	customerProps = `{
		"name":      {"type": "string", "minLength": 1, "maxLength": 120},
		"email":     {"type": "string", "format": "email", "maxLength": 254},
		"is_active": {"type": "boolean"}
	}`
	orderProps = `{
		"customer":    {"type": "integer", "minimum": 1},
		"status":      {"enum": ["draft", "paid", "shipped", "cancelled"]},
		"total_cents": {"type": ["integer", "null"]},
		"is_archived": {"type": "boolean"}
	}`
	itemProps = `{
		"order":            {"type": "integer", "minimum": 1},
		"sku":              {"type": "string", "minLength": 1, "maxLength": 64},
		"quantity":         {"type": "integer", "minimum": 1},
		"unit_price_cents": {"type": "integer", "minimum": 0}
	}`
	seedProps = `{
		"customers":           {"type": "integer", "minimum": 0, "maximum": 10000},
		"orders_per_customer": {"type": "integer", "minimum": 0, "maximum": 100},
		"items_per_order":     {"type": "integer", "minimum": 0, "maximum": 100}
	}`
)

// schemas holds the compiled request body schemas by name. Names ending in
// "-patch" accept any subset of the properties.
var schemas = map[string]*jsonschema.Schema{}

func init() {
	defs := map[string]string{
		"customer":       objectSchema(customerProps, "name", "email"),
		"customer-patch": objectSchema(customerProps),
		"order":          objectSchema(orderProps, "customer"),
		"order-patch":    objectSchema(orderProps),
		"item":           objectSchema(itemProps, "order", "sku", "quantity", "unit_price_cents"),
		"item-patch":     objectSchema(itemProps),
		"seed":           objectSchema(seedProps),
	}
	for name, def := range defs {
		schemas[name] = mustCompile(name, def)
	}
}

func objectSchema(props string, required ...string) string {
	req := "[]"
	if len(required) > 0 {
		req = `["` + strings.Join(required, `", "`) + `"]`
	}
	return fmt.Sprintf(`{"type": "object", "properties": %s, "required": %s}`, props, req)
}

func mustCompile(name, def string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true
	url := fmt.Sprintf("https://regression-lab.dev/schemas/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(def)); err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	return c.MustCompile(url)
}

// decodeBody validates the request body against the named schema and then
// decodes it into dst. An empty body counts as {}.
func decodeBody(r *http.Request, schema string, dst interface{}) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return errors.Wrap(err, "read request body")
	}
	if len(raw) > maxBodyBytes {
		return model.Invalid("request body exceeds %d bytes", maxBodyBytes)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return model.Invalid("malformed JSON: %v", err)
	}
	if err := schemas[schema].Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return model.Invalid("%s", validationDetail(ve))
		}
		return model.Invalid("%v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return model.Invalid("malformed JSON: %v", err)
	}
	return nil
}

// validationDetail flattens the leaf causes of a schema failure into one line.
func validationDetail(ve *jsonschema.ValidationError) string {
	var msgs []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(msgs, "; ")
}
