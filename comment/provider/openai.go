package provider

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

// CallWithRetry sends a Responses API request under policy.
func CallWithRetry(ctx context.Context, client *openai.Client, params responses.ResponseNewParams, policy RetryPolicy) (*responses.Response, error) {
	return Retry(ctx, policy, func(ctx context.Context) (*responses.Response, error) {
		return client.Responses.New(ctx, params)
	})
}

// GenerateSchema reflects T into a strict structured-output schema: no references, no additional
// properties, every property required.
func GenerateSchema[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)
	schemaObj, err := schemaToMap(schema)
	if err != nil {
		panic(err)
	}
	ensureStrict(schemaObj)
	return schemaObj
}

func schemaToMap(schema *jsonschema.Schema) (map[string]interface{}, error) {
	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

const (
	propertiesKey           = "properties"
	additionalPropertiesKey = "additionalProperties"
	typeKey                 = "type"
	requiredKey             = "required"
	itemsKey                = "items"
)

func ensureStrict(schema map[string]interface{}) {
	if schemaType, ok := schema[typeKey].(string); ok && schemaType == "object" {
		schema[additionalPropertiesKey] = false

		if properties, ok := schema[propertiesKey].(map[string]interface{}); ok && len(properties) > 0 {
			required := make([]string, 0, len(properties))
			for name := range properties {
				required = append(required, name)
			}
			sort.Strings(required)
			schema[requiredKey] = required
		}
	}

	if properties, ok := schema[propertiesKey].(map[string]interface{}); ok {
		for _, prop := range properties {
			if propMap, ok := prop.(map[string]interface{}); ok {
				ensureStrict(propMap)
			}
		}
	}
	if items, ok := schema[itemsKey].(map[string]interface{}); ok {
		ensureStrict(items)
	}
	if additional, ok := schema[additionalPropertiesKey].(map[string]interface{}); ok {
		ensureStrict(additional)
	}
}
