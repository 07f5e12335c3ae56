package mcpserver

import (
	"encoding/json"
	"strings"
)

const (
	manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	serverName     = "io.github.panbanda/augur"
	imageName      = "ghcr.io/panbanda/augur"
	publisherKey   = "io.modelcontextprotocol.registry/publisher-provided"
)

// Manifest is the registry entry (server.json) for the augur server.
type Manifest struct {
	Schema      string                  `json:"$schema"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Version     string                  `json:"version"`
	Repository  *Repository             `json:"repository,omitempty"`
	Packages    []Package               `json:"packages,omitempty"`
	Meta        map[string]Capabilities `json:"_meta,omitempty"`
}

// Repository locates the server source.
type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package runs augur from its container image over stdio.
type Package struct {
	RegistryType         string        `json:"registryType"`
	Identifier           string        `json:"identifier"`
	PackageArguments     []Argument    `json:"packageArguments,omitempty"`
	EnvironmentVariables []EnvVariable `json:"environmentVariables,omitempty"`
	Transport            Transport     `json:"transport"`
}

// Argument is a command-line argument passed to the image.
type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// EnvVariable is an environment variable the server reads.
type EnvVariable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsRequired  bool   `json:"isRequired"`
}

// Transport is the MCP transport type.
type Transport struct {
	Type string `json:"type"`
}

// Capabilities lists what the server registers, so a registry can show
// the tool and prompts without starting it.
type Capabilities struct {
	Tools   []Entry `json:"tools"`
	Prompts []Entry `json:"prompts"`
}

// Entry names one tool or prompt.
type Entry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GenerateManifest builds server.json for version ("0.0.0" when empty).
func GenerateManifest(version string) ([]byte, error) {
	if version == "" {
		version = "0.0.0"
	}

	prompts, err := loadPrompts()
	if err != nil {
		return nil, err
	}
	caps := Capabilities{
		Tools: []Entry{{Name: analyzeToolName, Description: firstLine(describeAnalyze())}},
	}
	for _, p := range prompts {
		caps.Prompts = append(caps.Prompts, Entry{Name: p.name, Description: p.description})
	}

	manifest := Manifest{
		Schema:      manifestSchema,
		Name:        serverName,
		Description: caps.Tools[0].Description,
		Version:     version,
		Repository: &Repository{
			URL:    "https://github.com/panbanda/augur",
			Source: "github",
		},
		Packages: []Package{{
			RegistryType:     "oci",
			Identifier:       imageName + ":" + version,
			PackageArguments: []Argument{{Type: "positional", Value: "mcp"}},
			EnvironmentVariables: []EnvVariable{{
				Name:        "AUGUR_CONFIG",
				Description: "Path to an augur configuration file",
			}},
			Transport: Transport{Type: "stdio"},
		}},
		Meta: map[string]Capabilities{publisherKey: caps},
	}

	return json.MarshalIndent(manifest, "", "  ")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSuffix(strings.TrimSpace(line), ".")
}
