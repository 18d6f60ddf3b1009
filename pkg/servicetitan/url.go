package servicetitan

import "strings"

// ResourcePath names a resource below a tenant. Tenant overrides the
// credential tenant for multi-tenant apps.
type ResourcePath struct {
	Folder   string
	Resource string
	ID       string
	Modifier string
	Tenant   string
}

// BuildURL composes {api_root}/{folder}/v2/tenant/{tenant}/{resource}[/{id}][/{modifier}].
// Segments are joined as given; a modifier such as "notes/456" forms a nested path.
func BuildURL(creds *Credentials, path ResourcePath) string {
	tenant := creds.TenantID
	if path.Tenant != "" {
		tenant = path.Tenant
	}

	var builder strings.Builder

	builder.WriteString(strings.TrimSuffix(creds.APIRoot, "/"))
	builder.WriteString("/")
	builder.WriteString(path.Folder)
	builder.WriteString("/v2/tenant/")
	builder.WriteString(tenant)
	builder.WriteString("/")
	builder.WriteString(path.Resource)

	if path.ID != "" {
		builder.WriteString("/")
		builder.WriteString(path.ID)
	}

	if path.Modifier != "" {
		builder.WriteString("/")
		builder.WriteString(path.Modifier)
	}

	return builder.String()
}
