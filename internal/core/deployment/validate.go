package deployment

import (
	"fmt"
	"sort"

	"github.com/topdeck-io/topdeck/internal/core/constraint"
	"github.com/topdeck-io/topdeck/internal/core/domain"
	"github.com/topdeck-io/topdeck/internal/core/eval"
	"github.com/topdeck-io/topdeck/internal/core/topology"
)

// ValidateOptions checks that every required option has a value and
// that url-typed options are internally consistent. Options whose
// required field is a condition document are only required when the
// condition holds against the deployment inputs.
func (d *Deployment) ValidateOptions() error {
	scopes := d.conditionScopes()

	for _, name := range sortedOptionNames(d.Blueprint.Options) {
		option := d.Blueprint.Options[name]
		if option == nil {
			continue
		}

		required, err := d.optionRequired(option, scopes)
		if err != nil {
			return domain.Validationf("option %q: %v", name, err)
		}
		value, provided := d.Inputs.OptionValue(name)
		if required && !provided && option.Default == nil {
			return domain.Validationf("required option %q has no value", name)
		}

		if provided && option.Type == "url" {
			if err := validateURLOption(name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateInputConstraints tests every provided option value against
// the option's declared constraints.
func (d *Deployment) ValidateInputConstraints() error {
	for _, name := range sortedOptionNames(d.Blueprint.Options) {
		option := d.Blueprint.Options[name]
		if option == nil || len(option.Constraints) == 0 {
			continue
		}
		value, provided := d.Inputs.OptionValue(name)
		if !provided {
			continue
		}

		if len(option.Choice) > 0 && !choiceContains(option.Choice, value) {
			return domain.Validationf("option %q: value %v is not one of the choices", name, value)
		}
		for _, doc := range option.Constraints {
			c, err := constraint.FromDocument(doc)
			if err != nil {
				return domain.Validationf("option %q: %v", name, err)
			}
			if !c.Test(value) {
				return domain.Validationf("option %q: %s", name, c.Message())
			}
		}
	}
	return nil
}

// EvaluateDefaults runs generator expressions in option defaults
// ("=generate_password(...)", "=generate_uuid()") for options the
// operator left unset, storing the produced values as inputs so every
// later lookup sees the same value.
func (d *Deployment) EvaluateDefaults() error {
	for _, name := range sortedOptionNames(d.Blueprint.Options) {
		option := d.Blueprint.Options[name]
		if option == nil || !eval.IsExpression(option.Default) {
			continue
		}
		if _, provided := d.Inputs.OptionValue(name); provided {
			continue
		}
		value, err := eval.Evaluate(option.Default.(string))
		if err != nil {
			return domain.Validationf("option %q: evaluating default: %v", name, err)
		}
		d.Inputs.Blueprint[name] = value
	}
	return nil
}

func (d *Deployment) optionRequired(option *topology.Option, scopes eval.Scopes) (bool, error) {
	switch required := option.Required.(type) {
	case nil:
		return false, nil
	case bool:
		return required, nil
	default:
		return eval.Condition(required, scopes)
	}
}

func (d *Deployment) conditionScopes() eval.Scopes {
	return eval.Scopes{
		"inputs": d.Inputs.Raw(),
	}
}

func validateURLOption(name string, value any) error {
	m, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	_, hasCert := m["certificate"]
	_, hasKey := m["private_key"]
	if hasCert != hasKey {
		return domain.Validationf("option %q: url credentials need both certificate and private_key", name)
	}
	return nil
}

func choiceContains(choices []any, value any) bool {
	for _, c := range choices {
		if fmt.Sprintf("%v", c) == fmt.Sprintf("%v", value) {
			return true
		}
	}
	return false
}

func sortedOptionNames(options map[string]*topology.Option) []string {
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
