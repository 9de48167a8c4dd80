package cligen

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/tarrence/clify/internal/openapi"
)

// Environment fallbacks for the shared credential flags.
const (
	EnvUsername = "CLIFY_USERNAME"
	EnvPassword = "CLIFY_PASSWORD"
	EnvToken    = "CLIFY_TOKEN"
)

// applicableSchemes lists the scheme names that govern op. Operation
// requirements override the document's; when neither declares any, every
// defined scheme applies. An explicit empty list means none.
func applicableSchemes(spec *openapi.Spec, op *openapi.Operation) []string {
	reqs := spec.SecurityRequirements(op)
	if reqs == nil {
		names := make([]string, 0, len(spec.Components.SecuritySchemes))
		for name := range spec.Components.SecuritySchemes {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	}
	var names []string
	seen := map[string]bool{}
	for _, req := range reqs {
		keys := make([]string, 0, len(req))
		for k := range req {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	return names
}

func securityBindings(spec *openapi.Spec, op *openapi.Operation, names nameSet, flags []FlagSpec, log *slog.Logger) ([]SchemeBinding, []FlagSpec) {
	var (
		out       []SchemeBinding
		haveBasic bool
		haveToken bool
	)
	for _, name := range applicableSchemes(spec, op) {
		scheme, ok := spec.Components.SecuritySchemes[name]
		if !ok {
			log.Warn("operation references undefined security scheme", "scheme", name)
			continue
		}
		b := SchemeBinding{Name: name, Type: scheme.Type}
		switch strings.ToLower(scheme.Type) {
		case "apikey":
			tok := Token(name)
			if tok == "" || scheme.Name == "" {
				log.Warn("ignoring apiKey scheme without a usable name", "scheme", name)
				continue
			}
			b.In = strings.ToLower(scheme.In)
			b.Key = scheme.Name
			b.Flag = names.claim(tok, "key")
			flags = append(flags, FlagSpec{
				Name:      b.Flag,
				In:        InSecurity,
				Key:       scheme.Name,
				Help:      apiKeyHelp(name, scheme),
				EnvVar:    envName(name),
				Sensitive: true,
			})
		case "http":
			b.Scheme = strings.ToLower(scheme.Scheme)
			if b.Scheme == "basic" {
				if !haveBasic {
					haveBasic = true
					flags = append(flags,
						FlagSpec{Name: names.claim(UsernameFlag, ""), In: InSecurity, Key: UsernameFlag, Help: "Username for HTTP basic auth", EnvVar: EnvUsername},
						FlagSpec{Name: names.claim(PasswordFlag, ""), In: InSecurity, Key: PasswordFlag, Help: "Password for HTTP basic auth", EnvVar: EnvPassword, Sensitive: true},
					)
				}
				break
			}
			flags = appendTokenFlag(flags, names, &haveToken)
		case "oauth2", "openidconnect":
			flags = appendTokenFlag(flags, names, &haveToken)
		default:
			log.Warn("ignoring unsupported security scheme type", "scheme", name, "type", scheme.Type)
			continue
		}
		out = append(out, b)
	}
	return out, flags
}

func appendTokenFlag(flags []FlagSpec, names nameSet, have *bool) []FlagSpec {
	if *have {
		return flags
	}
	*have = true
	return append(flags, FlagSpec{
		Name:      names.claim(TokenFlag, ""),
		In:        InSecurity,
		Key:       TokenFlag,
		Help:      "Bearer token",
		EnvVar:    EnvToken,
		Sensitive: true,
	})
}

func apiKeyHelp(name string, s openapi.SecurityScheme) string {
	if d := strings.TrimSpace(s.Description); d != "" {
		return d
	}
	return "API key for " + name + " (sent as " + strings.ToLower(s.In) + " " + s.Name + ")"
}
