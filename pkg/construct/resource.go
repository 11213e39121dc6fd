package construct

import "sort"

// Kind tags a resource with the entry of the kind table that describes it.
type Kind string

const (
	KindNetwork              Kind = "Network"
	KindSecurityGroup        Kind = "SecurityGroup"
	KindSecurityGroupIngress Kind = "SecurityGroupIngress"
	KindRole                 Kind = "Role"
	KindLaunchTemplate       Kind = "LaunchTemplate"
	KindAutoscalingGroup     Kind = "AutoscalingGroup"
	KindLoadBalancer         Kind = "LoadBalancer"
	KindListener             Kind = "Listener"
	KindTargetGroup          Kind = "TargetGroup"
)

type Resource struct {
	ID         string
	Kind       Kind
	Properties Properties
}

func CreateResource(id string, kind Kind) *Resource {
	return &Resource{
		ID:         id,
		Kind:       kind,
		Properties: make(Properties),
	}
}

// Clone returns a deep copy of the resource so that later changes to the original
// (or to any nested list or map in its properties) are not observed by the copy.
func (r *Resource) Clone() *Resource {
	return &Resource{
		ID:         r.ID,
		Kind:       r.Kind,
		Properties: r.Properties.Clone(),
	}
}

// References returns the references declared inline in the resource's properties, ordered by
// attribute name and then by their position within the attribute's value.
func (r *Resource) References() []Reference {
	names := make([]string, 0, len(r.Properties))
	for k := range r.Properties {
		names = append(names, k)
	}
	sort.Strings(names)

	var refs []Reference
	for _, name := range names {
		for _, target := range CollectRefs(r.Properties[name]) {
			refs = append(refs, Reference{
				Source: PropertyRef{Resource: r.ID, Property: name},
				Target: target,
			})
		}
	}
	return refs
}
