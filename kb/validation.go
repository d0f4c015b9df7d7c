package kb

import (
	"errors"
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go4.org/netipx"

	"github.com/signalsfoundry/netintent/model"
)

var (
	ErrInvalidIntent  = errors.New("invalid intent")
	ErrInvalidPrefix  = errors.New("invalid domain prefix")
	ErrPrefixOverlap  = errors.New("domain prefixes overlap")
	ErrUnknownRouter  = errors.New("cost override references non-member")
	ErrCrossASMetric  = errors.New("cost override spans two domains")
	ErrInvalidOverlay = errors.New("invalid relationship")
)

// DomainPrefixBits is the length of every domain aggregate.
const DomainPrefixBits = 32

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	communityPattern = regexp.MustCompile(`^\d{1,5}:\d{1,5}$`)
)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("community", func(fl validator.FieldLevel) bool {
		return communityPattern.MatchString(fl.Field().String())
	})
}

// ParseDomainPrefix turns the leading hextets of a domain ("2001:100") into
// its /32. More than two hextets, or host bits past /32, are rejected: link
// subnets append two more hextets and must stay inside a /64.
func ParseDomainPrefix(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Prefix{}, fmt.Errorf("%w: empty", ErrInvalidPrefix)
	}
	if strings.Contains(s, "::") || strings.Contains(s, "/") {
		return netip.Prefix{}, fmt.Errorf("%w: %q must be leading hextets only, e.g. 2001:100", ErrInvalidPrefix, s)
	}
	p, err := netip.ParsePrefix(s + "::/32")
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %q: %v", ErrInvalidPrefix, s, err)
	}
	if !p.Addr().Is6() || p.Masked() != p {
		return netip.Prefix{}, fmt.Errorf("%w: %q does not fit a /%d", ErrInvalidPrefix, s, DomainPrefixBits)
	}
	return p, nil
}

// Validate checks the semantic rules struct tags cannot express: prefixes
// parse and never overlap, AS numbers and memberships are unique, cost
// overrides stay inside one domain, relationship kinds are known.
func Validate(intent *model.Intent) error {
	if intent == nil {
		return fmt.Errorf("%w: intent is nil", ErrInvalidIntent)
	}

	var errs []error
	var accepted []netip.Prefix
	owners := make(map[netip.Prefix]string)

	addPrefix := func(label, raw string) {
		p, err := ParseDomainPrefix(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
			return
		}
		set, err := prefixSet(accepted)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
			return
		}
		if set.OverlapsPrefix(p) {
			other := "another domain"
			for _, q := range accepted {
				if q.Overlaps(p) {
					other = owners[q]
					break
				}
			}
			errs = append(errs, fmt.Errorf("%w: %s %s and %s", ErrPrefixOverlap, label, p, other))
			return
		}
		accepted = append(accepted, p)
		owners[p] = label
	}

	addPrefix("inter-AS prefix", intent.Global.InterASPrefix)
	if intent.Global.ManagementPrefix != "" {
		addPrefix("management prefix", intent.Global.ManagementPrefix)
	}

	asns := make(map[uint32]struct{})
	members := make(map[string]uint32)
	for _, as := range intent.Systems {
		label := fmt.Sprintf("AS %d", as.ASN)
		if as.ASN == 0 {
			errs = append(errs, fmt.Errorf("%w: AS number 0", ErrInvalidIntent))
		}
		if _, dup := asns[as.ASN]; dup {
			errs = append(errs, fmt.Errorf("%w: %s declared twice", ErrInvalidIntent, label))
		}
		asns[as.ASN] = struct{}{}
		addPrefix(label, as.Prefix)

		switch as.Protocol {
		case model.IGPRIP:
			if strings.TrimSpace(as.RIPProcessName) == "" {
				errs = append(errs, fmt.Errorf("%w: %s runs rip without a process name", ErrInvalidIntent, label))
			}
		case model.IGPOSPF:
			if as.OSPFProcessID <= 0 {
				errs = append(errs, fmt.Errorf("%w: %s runs ospf without a process id", ErrInvalidIntent, label))
			}
		case model.IGPNone:
		default:
			errs = append(errs, fmt.Errorf("%w: %s protocol %q", ErrInvalidIntent, label, as.Protocol))
		}

		for _, r := range as.Routers {
			if other, dup := members[r]; dup {
				errs = append(errs, fmt.Errorf("%w: %q is a member of AS %d and %s", ErrInvalidIntent, r, other, label))
				continue
			}
			members[r] = as.ASN
		}
	}

	for _, as := range intent.Systems {
		for _, c := range as.CostOverrides {
			for _, r := range []string{c.A, c.B} {
				if members[r] != as.ASN {
					errs = append(errs, fmt.Errorf("%w: AS %d cost %s-%s names %q", ErrUnknownRouter, as.ASN, c.A, c.B, r))
				}
			}
			if c.Cost <= 0 {
				errs = append(errs, fmt.Errorf("%w: AS %d cost %s-%s must be positive", ErrInvalidIntent, as.ASN, c.A, c.B))
			}
		}
	}

	for i, rel := range intent.Relationships {
		if !rel.Kind.Valid() {
			errs = append(errs, fmt.Errorf("%w: [%d] kind %q", ErrInvalidOverlay, i, rel.Kind))
		}
		if rel.From == "" || rel.To == "" || rel.From == rel.To {
			errs = append(errs, fmt.Errorf("%w: [%d] needs two distinct routers", ErrInvalidOverlay, i))
		}
	}

	if !communityPattern.MatchString(intent.Policy.CustomerCommunity) {
		errs = append(errs, fmt.Errorf("%w: customer community %q, want ASN:VALUE", ErrInvalidIntent, intent.Policy.CustomerCommunity))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidIntent, errors.Join(errs...))
	}
	return nil
}

func prefixSet(ps []netip.Prefix) (*netipx.IPSet, error) {
	var b netipx.IPSetBuilder
	for _, p := range ps {
		b.AddPrefix(p)
	}
	return b.IPSet()
}

// formatValidationError flattens validator field errors into one message.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "required_if":
			msgs = append(msgs, fmt.Sprintf("%s is required when %s", fe.Namespace(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %v", fe.Namespace(), fe.Param(), fe.Value()))
		case "community":
			msgs = append(msgs, fmt.Sprintf("%s must look like ASN:VALUE, got %v", fe.Namespace(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidIntent, strings.Join(msgs, "; "))
}
