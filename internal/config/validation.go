package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration is wrapped by every error returned from Load and Validate.
var ErrConfiguration = errors.New("configuration error")

// Validate checks struct constraints and the cross-field rules validator tags
// cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	if _, ok := c.Prompts.lookupLanguage(); !ok {
		return fmt.Errorf("%w: prompts.language %q is not defined in prompts.languages", ErrConfiguration, c.Prompts.Language)
	}

	if strings.ContainsAny(c.Artifacts.Dir, "*?[") {
		return fmt.Errorf("%w: artifacts.dir must not contain glob characters", ErrConfiguration)
	}

	return nil
}

// LanguageName resolves the configured language selector to the script name
// used inside prompt templates, e.g. "zh-TW" -> "繁體中文".
func (p PromptsConfig) LanguageName() string {
	name, _ := p.lookupLanguage()
	return name
}

func (p PromptsConfig) lookupLanguage() (string, bool) {
	key := strings.ToLower(strings.TrimSpace(p.Language))
	for k, name := range p.Languages {
		if strings.ToLower(k) == key {
			return name, true
		}
	}
	return "", false
}
