package netsuite

// StreamSpec is the data-driven description of one entity stream. All
// streams share the same pagination and expansion algorithm; only the
// endpoint path, replication key and custom-field prefix differ.
type StreamSpec struct {
	// Name is the emitted stream name
	Name string
	// Path is the entity path under the record API root, e.g. "/customer"
	Path string
	// ReplicationKey orders incremental extraction; empty means the
	// stream re-enumerates fully every run
	ReplicationKey string
	// CustomFieldPrefix names the dynamic field bucket; fields whose
	// names carry the prefix are folded into an array under it
	CustomFieldPrefix string
	// PrimaryKey lists the key fields
	PrimaryKey []string
}

// DefaultStreams lists the entities this connector extracts.
var DefaultStreams = []StreamSpec{
	{
		Name:              "customers",
		Path:              "/customer",
		ReplicationKey:    "lastModifiedDate",
		CustomFieldPrefix: "custentity",
		PrimaryKey:        []string{"id"},
	},
	{
		Name:              "inventory_items",
		Path:              "/inventoryItem",
		ReplicationKey:    "lastModifiedDate",
		CustomFieldPrefix: "custitem",
		PrimaryKey:        []string{"id"},
	},
	{
		Name:              "purchase_orders",
		Path:              "/purchaseOrder",
		ReplicationKey:    "lastModifiedDate",
		CustomFieldPrefix: "custbody",
		PrimaryKey:        []string{"id"},
	},
	{
		Name:              "sales_orders",
		Path:              "/salesOrder",
		ReplicationKey:    "lastModifiedDate",
		CustomFieldPrefix: "custbody",
		PrimaryKey:        []string{"id"},
	},
}

// selectStreams filters DefaultStreams down to the requested names.
// An empty selection means all streams.
func selectStreams(names []string) []StreamSpec {
	if len(names) == 0 {
		return DefaultStreams
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	selected := make([]StreamSpec, 0, len(names))
	for _, spec := range DefaultStreams {
		if want[spec.Name] {
			selected = append(selected, spec)
		}
	}
	return selected
}
