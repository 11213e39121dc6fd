package construct

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/mitchellh/mapstructure"
)

// IngressRule is pure data owned by a SecurityGroup resource, stored in its `ingress` property.
type IngressRule struct {
	Protocol    string `mapstructure:"protocol" yaml:"protocol" json:"protocol"`
	Port        int    `mapstructure:"port" yaml:"port" json:"port"`
	SourceCIDR  string `mapstructure:"sourceCidr" yaml:"sourceCidr" json:"sourceCidr"`
	Description string `mapstructure:"description" yaml:"description,omitempty" json:"description,omitempty"`
}

func (r IngressRule) String() string {
	return fmt.Sprintf("%s/%d from %s", r.Protocol, r.Port, r.SourceCIDR)
}

func (r IngressRule) Validate() error {
	var err error
	switch r.Protocol {
	case "tcp", "udp", "icmp", "-1":
	default:
		err = errors.Join(err, fmt.Errorf("unsupported protocol '%s'", r.Protocol))
	}
	if r.Port < 0 || r.Port > 65535 {
		err = errors.Join(err, fmt.Errorf("port %d out of range", r.Port))
	}
	if _, perr := netip.ParsePrefix(r.SourceCIDR); perr != nil {
		err = errors.Join(err, fmt.Errorf("invalid source CIDR '%s': %w", r.SourceCIDR, perr))
	}
	return err
}

// DecodeIngressRules converts a property value (either rules built in Go or the generic lists of
// maps that come out of YAML) into validated IngressRules.
func DecodeIngressRules(v any) ([]IngressRule, error) {
	var rules []IngressRule
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []IngressRule:
		rules = append(rules, v...)
	case IngressRule:
		rules = []IngressRule{v}
	default:
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &rules,
			ErrorUnused:      true,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(v); err != nil {
			return nil, &PropertyTypeError{Path: []string{"ingress"}, Cause: err}
		}
	}

	var errs error
	for i, rule := range rules {
		if err := rule.Validate(); err != nil {
			errs = errors.Join(errs, &PropertyTypeError{
				Path:  []string{"ingress", fmt.Sprintf("[%d]", i)},
				Cause: err,
			})
		}
	}
	if errs != nil {
		return nil, errs
	}
	return rules, nil
}
