package limits

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fieldvine/billing/pkg/subscription"
)

// yamlSource loads the plan limit table from a YAML file:
//
//	plans:
//	  basic:
//	    name: Basic
//	    limits:
//	      users: 3
//	      clients: 100
//	      jobs: 50
//	      quotes: 50
//	  elite:
//	    name: Elite
//	    limits:
//	      users: -1
type yamlSource struct {
	path string
}

// NewYAMLSource returns a Source reading the given YAML file on Load.
func NewYAMLSource(path string) Source {
	return &yamlSource{path: path}
}

type yamlFile struct {
	Plans map[string]yamlPlan `yaml:"plans"`
}

type yamlPlan struct {
	Name   string           `yaml:"name"`
	Limits map[string]int64 `yaml:"limits"`
}

func (s *yamlSource) Load(ctx context.Context) (map[subscription.PlanID]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	var file yamlFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	plans := make(map[subscription.PlanID]Plan, len(file.Plans))
	for id, p := range file.Plans {
		planID := subscription.PlanID(id)
		if !planID.Valid() {
			return nil, errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("unknown plan id %q in %s", id, s.path))
		}

		lims := make(map[Resource]int64, len(p.Limits))
		for res, limit := range p.Limits {
			if limit < Unlimited {
				return nil, errors.Join(ErrInvalidPlanConfiguration,
					fmt.Errorf("plan %q resource %q has limit %d", id, res, limit))
			}
			lims[Resource(res)] = limit
		}

		plans[planID] = Plan{ID: planID, Name: p.Name, Limits: lims}
	}

	return plans, nil
}
