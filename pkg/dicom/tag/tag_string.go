package tag

import (
	"encoding/json"
	"fmt"
)

// String returns a string representation of the Tag (GGGG,EEEE)
func (t Tag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.Group, t.Element)
}

// MarshalJSON returns a JSON representation of the Tag
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// String returns (GGGG,EEEE) for order 0 and (GGGG,EEEE)#order otherwise
func (id ID) String() string {
	if id.Order == 0 {
		return id.Tag().String()
	}
	return fmt.Sprintf("%s#%d", id.Tag(), id.Order)
}

// MarshalJSON returns a JSON representation of the ID
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}
