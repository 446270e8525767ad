package flatten

// Role is the coarse structural classification of a node's ontology type.
type Role string

const (
	RoleEntity   Role = "Entity"
	RoleProperty Role = "Property"
	RoleConcept  Role = "Concept"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEntity, RoleProperty, RoleConcept:
		return true
	}
	return false
}

// Classifier maps ontology type IRIs onto structural roles. The table is
// injected configuration, not logic: callers extend it without code changes.
type Classifier struct {
	roles map[string]Role
}

// NewClassifier builds a classifier from a type-IRI → role table. The table
// is copied; later mutation of the argument does not affect the classifier.
func NewClassifier(table map[string]Role) *Classifier {
	roles := make(map[string]Role, len(table))
	for uri, role := range table {
		roles[uri] = role
	}
	return &Classifier{roles: roles}
}

// Classify returns the role mapped to typeURI. Unmapped IRIs default to
// RoleEntity.
func (c *Classifier) Classify(typeURI string) Role {
	if role, ok := c.roles[typeURI]; ok {
		return role
	}
	return RoleEntity
}

// DefaultTypeRoles returns the built-in mapping from the Janes type ontology
// onto structural roles. Type and role must match up to the Janes ontology.
func DefaultTypeRoles() map[string]Role {
	return map[string]Role{
		"https://data.janes.com/ontologies/equipment/Equipment":            RoleEntity,
		"https://data.janes.com/ontologies/orbat/MilitaryGroup":            RoleEntity,
		"https://data.janes.com/ontologies/geo/Country":                    RoleEntity,
		"https://data.janes.com/ontologies/equipment/EquipmentFamily":      RoleProperty,
		"https://data.janes.com/ontologies/organization/Organization":      RoleEntity,
		"https://data.janes.com/ontologies/classification/Classification":  RoleProperty,
		"https://data.janes.com/ontologies/specifications/Condition":       RoleProperty,
		"https://data.janes.com/ontologies/equipment/EquipmentVariant":     RoleProperty,
		"https://data.janes.com/ontologies/specifications/Specification":   RoleProperty,
		"https://data.janes.com/ontologies/installation/Installation":      RoleEntity,
		"https://data.janes.com/ontologies/inventory/InServiceInventory":   RoleEntity,
		"https://data.janes.com/ontologies/agent/Organization":             RoleEntity,
		"https://data.janes.com/ontologies/inventory/AcquisitionInventory": RoleEntity,
		"https://data.janes.com/ontologies/installation/Runway":            RoleEntity,
		"https://data.janes.com/ontologies/agent/JointVenture":             RoleConcept,
		"https://data.janes.com/ontologies/unit/Unit":                      RoleConcept,
	}
}
