package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/law-makers/ammocrawl/pkg/models"
)

// SiteLookup resolves a site id to its descriptor.
type SiteLookup interface {
	Lookup(id string) (models.SiteDescriptor, error)
}

// EnvTargetsKey is the environment variable holding the target list of a
// caliber, e.g. MM_9MM_LUGER_URLS.
func EnvTargetsKey(caliber string) string {
	return "MM_" + CaliberKey(caliber) + "_URLS"
}

// ParseTargetList reads the "site;url,site;url" form.
func ParseTargetList(s string) ([]TargetRef, error) {
	var refs []TargetRef
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		site, u, ok := strings.Cut(item, ";")
		site, u = strings.TrimSpace(site), strings.TrimSpace(u)
		if !ok || site == "" || u == "" {
			return nil, fmt.Errorf("malformed target %q, want site;url", item)
		}
		refs = append(refs, TargetRef{Site: site, URL: u})
	}
	return refs, nil
}

// TargetRefs returns the targets configured for caliber: the config file
// entries followed by those from the caliber's environment variable.
func (c *Config) TargetRefs(caliber string) ([]TargetRef, error) {
	var refs []TargetRef
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if CaliberKey(name) == CaliberKey(caliber) {
			refs = append(refs, c.Targets[name]...)
		}
	}
	if v := os.Getenv(EnvTargetsKey(caliber)); v != "" {
		env, err := ParseTargetList(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvTargetsKey(caliber), err)
		}
		refs = append(refs, env...)
	}
	return refs, nil
}

// LoadTargets resolves the configured targets for caliber against the site
// registry. An unknown site id fails the whole list, before any browser
// is started.
func LoadTargets(c *Config, caliber string, sites SiteLookup) ([]models.Target, error) {
	refs, err := c.TargetRefs(caliber)
	if err != nil {
		return nil, err
	}
	targets := make([]models.Target, 0, len(refs))
	for _, r := range refs {
		d, err := sites.Lookup(r.Site)
		if err != nil {
			return nil, fmt.Errorf("caliber %s: %w", caliber, err)
		}
		targets = append(targets, models.Target{Site: d, URL: r.URL})
	}
	return targets, nil
}
