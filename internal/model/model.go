// Package model holds the tower record and the cached location types.
package model

import (
	"errors"
	"fmt"

	"github.com/mohammed-shakir/towercache/internal/cache/keys"
)

// OpenCellID column positions.
const (
	ColStandard  = 0
	ColMCC       = 1
	ColMNC       = 2
	ColLAC       = 3
	ColCID       = 4
	ColLatitude  = 6
	ColLongitude = 7

	minFields = ColLongitude + 1
)

var ErrShortRow = errors.New("row has too few fields")

// Record is one tower row. All values keep their source text.
type Record struct {
	Standard  string
	MCC       string
	MNC       string
	LAC       string
	CID       string
	Latitude  string
	Longitude string
}

// FromFields picks the consumed columns out of a CSV row.
func FromFields(fields []string) (Record, error) {
	if len(fields) < minFields {
		return Record{}, fmt.Errorf("%w: got %d, need %d", ErrShortRow, len(fields), minFields)
	}
	return Record{
		Standard:  fields[ColStandard],
		MCC:       fields[ColMCC],
		MNC:       fields[ColMNC],
		LAC:       fields[ColLAC],
		CID:       fields[ColCID],
		Latitude:  fields[ColLatitude],
		Longitude: fields[ColLongitude],
	}, nil
}

func (r Record) Key() string {
	return keys.Tower(r.MCC, r.MNC, r.LAC, r.CID)
}

func (r Record) Location() Location {
	return Location{Lat: r.Latitude, Lon: r.Longitude}
}

// Location is the value cached per tower key.
type Location struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (l Location) String() string {
	return l.Lat + "," + l.Lon
}
