// Package wizard collects scenario metadata interactively and renders a
// starter configuration file.
package wizard

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ScenarioSpec holds the fields collected during the interactive wizard.
type ScenarioSpec struct {
	Name       string
	Backend    string
	Model      string
	Agents     []string
	MaxTurns   int
	WithRubric bool
}

const configTemplate = `name: {{ .Name }}

globals:
  concurrency: 8
  max_turns: {{ .MaxTurns }}
  output_dir: results

models:
  {{ .Backend }}_default:
    type: {{ .Backend }}
    model: {{ .Model }}
    api_key: ${API_KEY}

agents:
{{- range .Agents }}
  {{ . }}:
    model: {{ $.Backend }}_default
    prompt:
      - role: system
        content: "You are {{ . }}. {task}"
{{- end }}

directions:
{{- range $i, $a := .Agents }}{{ if eq $i 0 }}
  - START -> {{ $a }}
{{- end }}{{ end }}
{{- range $i, $a := .Agents }}{{ if gt $i 0 }}
  - {{ index $.Agents (sub $i 1) }} -> {{ $a }}
{{- end }}{{ end }}
  - {{ last .Agents }} -> END

tasks:
  mode: union
  start_prompt:
    role: user
    content: "{task}"
  content:
    task:
      - "Example task one"
      - "Example task two"
{{ if .WithRubric }}
evaluation:
  model: {{ .Backend }}_default
  prompt:
    - role: system
      content: "You are a strict grader. Score the conversation below."
    - role: user
      content: "{messages}"
  format:
    - field: clarity
      type: int
      description: Clarity of the final answer, 1-5.
    - field: accuracy
      type: int
      description: Factual accuracy, 1-5.
  mode: tool
{{ end -}}
`

// RunScenarioWizard runs an interactive form to collect scenario metadata.
// initialName pre-populates the name field when non-empty.
func RunScenarioWizard(in io.Reader, out io.Writer, initialName string) (*ScenarioSpec, error) {
	var (
		name       = initialName
		backend    string
		model      string
		agentsRaw  string
		maxTurns   = "25"
		withRubric bool
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Scenario name").
				Description("A short name for this scenario").
				Placeholder("math-tutoring").
				Value(&name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("scenario name is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Backend").
				Options(
					huh.NewOption("openai", "openai"),
					huh.NewOption("deepseek", "deepseek"),
					huh.NewOption("ollama", "ollama"),
				).
				Value(&backend),
			huh.NewInput().
				Title("Model").
				Description("Model identifier for the backend").
				Placeholder("gpt-4o").
				Value(&model).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("model is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Agents").
				Description("Comma-separated agent names, in speaking order").
				Placeholder("teacher, student").
				Value(&agentsRaw),
			huh.NewInput().
				Title("Max turns").
				Value(&maxTurns),
			huh.NewConfirm().
				Title("Include an evaluation rubric?").
				Value(&withRubric),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Accessible mode for non-TTY input (tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	turns := 25
	if n, err := parsePositive(maxTurns); err == nil {
		turns = n
	}

	agents := splitAndTrim(agentsRaw)
	if len(agents) == 0 {
		agents = []string{"teacher", "student"}
	}

	return &ScenarioSpec{
		Name:       strings.TrimSpace(name),
		Backend:    backend,
		Model:      strings.TrimSpace(model),
		Agents:     agents,
		MaxTurns:   turns,
		WithRubric: withRubric,
	}, nil
}

// GenerateConfig renders a starter YAML configuration from the spec.
func GenerateConfig(spec *ScenarioSpec) (string, error) {
	funcs := template.FuncMap{
		"sub":  func(a, b int) int { return a - b },
		"last": func(s []string) string { return s[len(s)-1] },
	}
	tmpl, err := template.New("config").Funcs(funcs).Parse(configTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, spec); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

func parsePositive(s string) (int, error) {
	n := 0
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
