package sdata

// GetTestSchema builds the schema shared by tests across packages. It is a
// small menagerie: animals with a self-referencing parent edge, species and
// food reachable both directly and through junction tables, plus a pair of
// event junction tables that deliberately collide so ambiguity handling can
// be exercised.
func GetTestSchema() (*DBSchema, error) {
	tables := []DBTable{
		NewDBTable("public", "animals", "Animal", []DBColumn{
			{Name: "animal_id", Type: "bigint", NotNull: true, PrimaryKey: true},
			{Name: "name", Type: "text", NotNull: true},
			{Name: "color", Type: "text"},
			{Name: "net_worth", Type: "numeric"},
			{Name: "parentof_id", Type: "bigint", FKeyTable: "animals", FKeyCol: "animal_id"},
			{Name: "species_id", Type: "bigint", FKeyTable: "species", FKeyCol: "species_id"},
			{Name: "bornat_id", Type: "bigint", FKeyTable: "events", FKeyCol: "event_id"},
			{Name: "importantevent_id", Type: "bigint", FKeyTable: "events", FKeyCol: "event_id"},
		}),
		NewDBTable("public", "species", "Species", []DBColumn{
			{Name: "species_id", Type: "bigint", NotNull: true, PrimaryKey: true},
			{Name: "name", Type: "text", NotNull: true},
		}),
		NewDBTable("public", "food", "Food", []DBColumn{
			{Name: "food_id", Type: "bigint", NotNull: true, PrimaryKey: true},
			{Name: "name", Type: "text", NotNull: true},
		}),
		NewDBTable("public", "events", "Event", []DBColumn{
			{Name: "event_id", Type: "bigint", NotNull: true, PrimaryKey: true},
			{Name: "name", Type: "text", NotNull: true},
		}),
		NewDBTable("public", "buildings", "Building", []DBColumn{
			{Name: "building_id", Type: "bigint", NotNull: true, PrimaryKey: true},
			{Name: "name", Type: "text"},
		}),
		NewDBTable("public", "animal_friendswith", "", []DBColumn{
			{Name: "animal_id", Type: "bigint", NotNull: true, FKeyTable: "animals", FKeyCol: "animal_id"},
			{Name: "friendswith_id", Type: "bigint", NotNull: true, FKeyTable: "animals", FKeyCol: "animal_id"},
		}),
		NewDBTable("public", "animal_eats_food", "", []DBColumn{
			{Name: "animal_id", Type: "bigint", NotNull: true, FKeyTable: "animals", FKeyCol: "animal_id"},
			{Name: "eats_id", Type: "bigint", NotNull: true, FKeyTable: "food", FKeyCol: "food_id"},
		}),
		NewDBTable("public", "species_eats", "", []DBColumn{
			{Name: "species_id", Type: "bigint", NotNull: true, FKeyTable: "species", FKeyCol: "species_id"},
			{Name: "eats_id", Type: "bigint", NotNull: true, FKeyTable: "food", FKeyCol: "food_id"},
		}),
		// event_related and event_related_event both match the edge
		// Event_Related, one as the short junction name and one as the
		// type-suffixed name.
		NewDBTable("public", "event_related", "", []DBColumn{
			{Name: "event_id", Type: "bigint", NotNull: true, FKeyTable: "events", FKeyCol: "event_id"},
			{Name: "related_id", Type: "bigint", NotNull: true, FKeyTable: "events", FKeyCol: "event_id"},
		}),
		NewDBTable("public", "event_related_event", "", []DBColumn{
			{Name: "event_id", Type: "bigint", NotNull: true, FKeyTable: "events", FKeyCol: "event_id"},
			{Name: "related_id", Type: "bigint", NotNull: true, FKeyTable: "events", FKeyCol: "event_id"},
		}),
	}
	return NewDBSchema(tables)
}
