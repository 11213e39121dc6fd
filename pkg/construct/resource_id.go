package construct

import (
	"fmt"
	"regexp"
)

// resourceIdPattern is like the name pattern of a resource id, except that neither `#` (the
// property separator of a PropertyRef) nor `:` may appear.
var resourceIdPattern = regexp.MustCompile(`^[a-zA-Z0-9_./\-\[\]]+$`)

func ValidateId(id string) error {
	if id == "" {
		return fmt.Errorf("resource id is empty")
	}
	if !resourceIdPattern.MatchString(id) {
		return fmt.Errorf("invalid resource id '%s' (must match %s)", id, resourceIdPattern)
	}
	return nil
}
