package entities

// DefaultEntityTypes are the built-in OSINT schemas. They cannot be removed.
var DefaultEntityTypes = []EntityType{
	{
		Name:         "Person",
		PrimaryField: "Full Name",
		Fields:       []string{"Full Name", "Alias", "Date of Birth", "Nationality"},
		Description:  "A natural person",
	},
	{
		Name:         "Phrase",
		PrimaryField: "Phrase",
		Fields:       []string{"Phrase"},
		Description:  "Free text, keywords, search terms",
	},
	{
		Name:         "Domain",
		PrimaryField: "Domain Name",
		Fields:       []string{"Domain Name", "Registrar"},
		Description:  "A DNS domain",
	},
	{
		Name:         "IP Address",
		PrimaryField: "IP Address",
		Fields:       []string{"IP Address", "ASN", "Country"},
		Description:  "An IPv4 or IPv6 address",
	},
	{
		Name:         "Email Address",
		PrimaryField: "Email Address",
		Fields:       []string{"Email Address"},
		Description:  "An email address",
	},
	{
		Name:         "Phone Number",
		PrimaryField: "Phone Number",
		Fields:       []string{"Phone Number", "Carrier"},
		Description:  "A telephone number",
	},
	{
		Name:         "Website",
		PrimaryField: "URL",
		Fields:       []string{"URL", "Title"},
		Description:  "A web page or site",
	},
	{
		Name:         "Document",
		PrimaryField: "Document Name",
		Fields:       []string{"Document Name", "File Path", "SHA256"},
		Description:  "A file or report",
	},
	{
		Name:         "Organization",
		PrimaryField: "Organization Name",
		Fields:       []string{"Organization Name", "Country"},
		Description:  "A company, agency or group of people",
	},
	{
		Name:         "Social Media Handle",
		PrimaryField: "Handle",
		Fields:       []string{"Handle", "Platform"},
		Description:  "An account on a social platform",
	},
	{
		Name:         GroupEntityType,
		PrimaryField: "Group Name",
		Fields:       []string{"Group Name"},
		Description:  "A bundle of other entities",
	},
}

// DefaultTypeNames returns just the names of default types for quick lookup.
func DefaultTypeNames() []string {
	names := make([]string, len(DefaultEntityTypes))
	for i, t := range DefaultEntityTypes {
		names[i] = t.Name
	}
	return names
}

// IsDefaultType checks if a type name is a built-in default.
func IsDefaultType(name string) bool {
	for _, t := range DefaultEntityTypes {
		if t.Name == name {
			return true
		}
	}
	return false
}
