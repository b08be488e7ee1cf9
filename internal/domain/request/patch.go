package request

import "sort"

// Persisted field names. They double as write-set keys, SQL column names and
// BSON keys.
const (
	FieldName          = "name"
	FieldEmail         = "email"
	FieldStartDate     = "start_date"
	FieldEndDate       = "end_date"
	FieldStartTime     = "start_time"
	FieldEndTime       = "end_time"
	FieldChargeAgainst = "charge_against"
	FieldManager       = "manager"
	FieldStatus        = "status"
)

// UpdateRequest is a sparse patch; nil fields are left unchanged.
type UpdateRequest struct {
	Name          *string
	Email         *string
	StartDate     *string
	EndDate       *string
	StartTime     *string
	EndTime       *string
	ChargeAgainst *ChargeAgainst
	Manager       *string
	Status        *Status
}

// WriteSet maps persisted field names to their store representation.
type WriteSet map[string]any

func (ws WriteSet) Empty() bool { return len(ws) == 0 }

func (ws WriteSet) Keys() []string {
	keys := make([]string, 0, len(ws))
	for k := range ws {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteSet builds the minimal set of field writes for the patch. Enumerated
// values are stored as their canonical names.
func (u UpdateRequest) WriteSet() WriteSet {
	ws := WriteSet{}
	putString(ws, FieldName, u.Name)
	putString(ws, FieldEmail, u.Email)
	putString(ws, FieldStartDate, u.StartDate)
	putString(ws, FieldEndDate, u.EndDate)
	putString(ws, FieldStartTime, u.StartTime)
	putString(ws, FieldEndTime, u.EndTime)
	putString(ws, FieldManager, u.Manager)
	if u.ChargeAgainst != nil {
		ws[FieldChargeAgainst] = u.ChargeAgainst.String()
	}
	if u.Status != nil {
		ws[FieldStatus] = u.Status.String()
	}
	return ws
}

// Merge derives the write set for applying patch to stored. The result
// depends on the patch alone; stored is accepted so callers can express the
// operation against a loaded entity.
func Merge(_ *Request, patch UpdateRequest) WriteSet {
	return patch.WriteSet()
}

func putString(ws WriteSet, key string, v *string) {
	if v != nil {
		ws[key] = *v
	}
}

// ApplyTo writes ws onto r in memory. Unknown keys are ignored.
func (ws WriteSet) ApplyTo(r *Request) {
	for k, v := range ws {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch k {
		case FieldName:
			r.Name = s
		case FieldEmail:
			r.Email = s
		case FieldStartDate:
			r.StartDate = s
		case FieldEndDate:
			r.EndDate = s
		case FieldStartTime:
			r.StartTime = s
		case FieldEndTime:
			r.EndTime = s
		case FieldChargeAgainst:
			r.ChargeAgainst = ChargeAgainst(s)
		case FieldManager:
			r.Manager = s
		case FieldStatus:
			r.Status = Status(s)
		}
	}
}
