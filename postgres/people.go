package postgres

import (
	"github.com/jackc/pgx/v5"
	"github.com/ttab/elephant-export/scroll"
)

// PersonColumns in the order that ScanPerson expects them.
var PersonColumns = []string{"id", "gender", "name", "city", "phone", "created"}

// PeopleQuery scrolls the person table in creation order, optionally
// filtered by gender.
func PeopleQuery(
	gender string, direction scroll.Direction, pageSize int,
) PageQuery[Person] {
	var filter []Condition

	if gender != "" {
		filter = append(filter, Eq("gender", gender))
	}

	return PageQuery[Person]{
		Table:          "person",
		Columns:        PersonColumns,
		OrderColumn:    "created",
		IdentityColumn: "id",
		Direction:      direction,
		PageSize:       pageSize,
		Filter:         filter,
		OrderValue: func(key int64) any {
			return scroll.KeyTime(key)
		},
		Scan: ScanPerson,
	}
}

func ScanPerson(row pgx.CollectableRow) (Person, error) {
	var p Person

	err := row.Scan(
		&p.ID, &p.Gender, &p.Name, &p.City, &p.Phone, &p.Created,
	)

	return p, err
}

// PersonOrderFields are the fields that people can be scrolled by.
var PersonOrderFields = scroll.Fields[Person]{
	"created": func(p Person) (int64, error) {
		return scroll.TimeKey(p.Created), nil
	},
}

func PersonIdentity(p Person) (string, bool) {
	return p.ID, p.ID != ""
}
