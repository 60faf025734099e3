// Package main generates the OpenAPI document of the yeelightd API from the
// shared route definitions, using stub handlers so nothing needs to run.
//
// Usage:
//
//	go run ./cmd/yeelight-openapi > openapi.json
//	go run ./cmd/yeelight-openapi --yaml > openapi.yaml
//	go run ./cmd/yeelight-openapi --output openapi.json
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/yeelightd/internal/http/routes"
)

// version is set via ldflags at build time.
var version = "dev"

// buildSpec registers every route against a throwaway router
func buildSpec(baseURL string) *huma.OpenAPI {
	api := humachi.New(chi.NewRouter(), routes.NewHumaConfig(version, baseURL))
	routes.Register(api, routes.StubHandlers())
	return api.OpenAPI()
}

// render marshals the document as indented JSON or YAML. YAML goes through
// the JSON form so the document keeps its OpenAPI field names.
func render(spec *huma.OpenAPI, asYAML bool) ([]byte, error) {
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil || !asYAML {
		return data, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

func main() {
	outputFile := pflag.String("output", "", "Output file path (default: stdout)")
	outputYAML := pflag.Bool("yaml", false, "Output as YAML instead of JSON")
	baseURL := pflag.String("base-url", "", "Base URL for the API server")
	showVersion := pflag.Bool("version", false, "Print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	data, err := render(buildSpec(*baseURL), *outputYAML)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error marshaling OpenAPI spec: %v\n", err)
		os.Exit(1)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "error writing to file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "OpenAPI spec written to %s\n", *outputFile)
		return
	}
	fmt.Print(string(data))
}
