package domain

import "time"

// LocationLevel identifies a tier of the geographic hierarchy.
type LocationLevel string

const (
	LevelProvince     LocationLevel = "PROVINCE"
	LevelDistrict     LocationLevel = "DISTRICT"
	LevelConstituency LocationLevel = "CONSTITUENCY"
	LevelWard         LocationLevel = "WARD"
)

// Province is the root of the hierarchy.
type Province struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// District belongs to exactly one province.
type District struct {
	ID         int64
	Name       string
	ProvinceID int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Constituency belongs to exactly one district.
type Constituency struct {
	ID         int64
	Name       string
	DistrictID int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Ward belongs to exactly one constituency and owns member records.
type Ward struct {
	ID             int64
	Name           string
	ConstituencyID int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LocationOption is a menu entry returned by directory child queries.
// The slice order is authoritative: USSD menu numbers index into it.
type LocationOption struct {
	ID   int64
	Name string
}
