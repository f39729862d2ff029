package schema

// ValueKind is the closed set of attribute kinds a field can declare.
type ValueKind string

const (
	KindText          ValueKind = "text"
	KindNumber        ValueKind = "number"
	KindSwitch        ValueKind = "switch"
	KindSelect        ValueKind = "select"
	KindMultiSelect   ValueKind = "multiselect"
	KindDate          ValueKind = "date"
	KindDateRange     ValueKind = "daterange"
	KindCheckboxGroup ValueKind = "checkbox"
	KindRadioGroup    ValueKind = "radio"
	KindSlider        ValueKind = "slider"
	KindUpload        ValueKind = "upload"
	KindTextArea      ValueKind = "textarea"
	KindHidden        ValueKind = "hidden"
)

var kinds = map[ValueKind]bool{
	KindText: true, KindNumber: true, KindSwitch: true, KindSelect: true,
	KindMultiSelect: true, KindDate: true, KindDateRange: true, KindCheckboxGroup: true,
	KindRadioGroup: true, KindSlider: true, KindUpload: true, KindTextArea: true,
	KindHidden: true,
}

// Valid reports whether k is one of the known kinds.
func (k ValueKind) Valid() bool {
	return kinds[k]
}

// HasOptions reports whether values of this kind are picked from an option list.
func (k ValueKind) HasOptions() bool {
	switch k {
	case KindSelect, KindMultiSelect, KindCheckboxGroup, KindRadioGroup:
		return true
	}
	return false
}

// MultiValued reports whether the kind holds a list of values.
func (k ValueKind) MultiValued() bool {
	switch k {
	case KindMultiSelect, KindCheckboxGroup, KindDateRange:
		return true
	}
	return false
}

// Numeric reports whether the kind holds a number.
func (k ValueKind) Numeric() bool {
	return k == KindNumber || k == KindSlider
}
