package store

import (
	"github.com/apmoronez/dogbot/internal/errors"
	"github.com/apmoronez/dogbot/internal/model"
	"github.com/apmoronez/dogbot/internal/validation"
)

type indexRef struct {
	field string
	value string
}

// savePlan is the full write set of one save, computed before any write
type savePlan struct {
	upserts       map[string]string
	deletes       []string
	addIndexes    []indexRef
	removeIndexes []indexRef
	oldName       string
	newName       string
}

// planSave walks the schema in order, coercing present fields and scheduling
// hash and index changes only for values that actually change. old is nil or
// empty for a creation.
func planSave(fields model.Patch, old map[string]string, creating bool) (*savePlan, error) {
	plan := &savePlan{upserts: make(map[string]string)}

	for _, def := range model.DogFields {
		oldValue, hadOld := old[def.Name]
		raw, present := fields[def.Name]

		if !present {
			if def.Required && (creating || !hadOld) {
				return nil, errors.MissingRequiredField(def.Name)
			}
			continue
		}

		if raw == nil {
			if def.Required {
				return nil, errors.MissingRequiredField(def.Name)
			}
			// nulls mean nothing on a brand-new dog
			if creating || !hadOld {
				continue
			}
			plan.deletes = append(plan.deletes, def.Name)
			if def.Indexed {
				plan.removeIndexes = append(plan.removeIndexes, indexRef{def.Name, oldValue})
			}
			continue
		}

		value, err := validation.Coerce(def, raw)
		if err != nil {
			return nil, err
		}
		if !creating && hadOld && oldValue == value {
			continue
		}

		plan.upserts[def.Name] = value
		if def.Indexed {
			if !creating && hadOld {
				plan.removeIndexes = append(plan.removeIndexes, indexRef{def.Name, oldValue})
			}
			plan.addIndexes = append(plan.addIndexes, indexRef{def.Name, value})
		}
	}

	plan.oldName = old[model.FieldName]
	if name, ok := plan.upserts[model.FieldName]; ok {
		plan.newName = name
	} else {
		plan.newName = plan.oldName
	}
	return plan, nil
}

// merged returns the record as it reads after the plan is applied to old
func (p *savePlan) merged(old map[string]string) map[string]string {
	out := make(map[string]string, len(old)+len(p.upserts))
	for k, v := range old {
		out[k] = v
	}
	for _, k := range p.deletes {
		delete(out, k)
	}
	for k, v := range p.upserts {
		out[k] = v
	}
	return out
}
