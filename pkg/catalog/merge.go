package catalog

import "github.com/dukex/demodeck/pkg/models"

// MergeParameters combines the catalog's explicit parameters with variables found in a
// role's defaults. Explicit parameters keep their position and their own label,
// description and default; the discovered values only fill what is unset. Discovered
// variables with no explicit parameter are appended as optional text parameters.
func MergeParameters(explicit []models.Parameter, discovered []RoleVariable) []models.Parameter {
	byName := make(map[string]RoleVariable, len(discovered))
	for _, v := range discovered {
		byName[v.Name] = v
	}

	merged := make([]models.Parameter, 0, len(explicit)+len(discovered))
	declared := make(map[string]struct{}, len(explicit))

	for _, p := range explicit {
		if v, ok := byName[p.Name]; ok {
			if p.Label == "" {
				p.Label = v.Label
			}

			if p.Description == "" {
				p.Description = v.Description
			}

			if p.Default == nil {
				p.Default = v.DefaultValue
			}
		}

		declared[p.Name] = struct{}{}
		merged = append(merged, p)
	}

	for _, v := range discovered {
		if _, ok := declared[v.Name]; ok {
			continue
		}

		label := v.Label
		if label == "" {
			label = v.Name
		}

		merged = append(merged, models.Parameter{
			Name:        v.Name,
			Label:       label,
			Description: v.Description,
			Type:        models.ParameterTypeText,
			Default:     v.DefaultValue,
		})
	}

	return merged
}
