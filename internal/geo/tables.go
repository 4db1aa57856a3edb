package geo

import (
	"encoding/json"
	"fmt"
	"os"

	"mandiarb/internal/model"
)

// PairDistance is one undirected road-distance edge between two places.
type PairDistance struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Km   float64 `json:"km"`
}

// Tables is the static configuration surface of the resolver: pairwise road
// distances, place coordinates and spelling aliases. Swapping the tables
// retargets the resolver to a new region without code changes.
type Tables struct {
	Pairs        []PairDistance               `json:"pairs"`
	Coordinates  map[string]model.Coordinates `json:"coordinates"`
	Aliases      map[string]string            `json:"aliases"`
	Hubs         []string                     `json:"hubs"`
	ReferenceHub string                       `json:"referenceHub"`
}

// LoadTables reads a Tables JSON file.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read tables: %w", err)
	}
	var t Tables
	if err := json.Unmarshal(data, &t); err != nil {
		return Tables{}, fmt.Errorf("unmarshal tables: %w", err)
	}
	return t, nil
}

// GujaratTables returns the built-in tables for Gujarat mandis. Road distances
// follow major highways; coordinates are district headquarters where a place
// is a district rather than a town.
func GujaratTables() Tables {
	return Tables{
		ReferenceHub: "Gandhinagar",
		Hubs:         []string{"Gandhinagar", "Ahmedabad", "Vadodara"},
		Pairs: []PairDistance{
			{From: "Gandhinagar", To: "Ahmedabad", Km: 26},
			{From: "Gandhinagar", To: "Mehsana", Km: 62},
			{From: "Gandhinagar", To: "Rajkot", Km: 237},
			{From: "Gandhinagar", To: "Surat", Km: 273},
			{From: "Gandhinagar", To: "Anand", Km: 98},
			{From: "Gandhinagar", To: "Bharuch", Km: 211},
			{From: "Gandhinagar", To: "Amreli", Km: 277},
			{From: "Gandhinagar", To: "Vadodara", Km: 100},
			{From: "Gandhinagar", To: "Bhavnagar", Km: 200},
			{From: "Gandhinagar", To: "Jamnagar", Km: 330},
			{From: "Gandhinagar", To: "Junagadh", Km: 330},

			{From: "Ahmedabad", To: "Mehsana", Km: 64},
			{From: "Ahmedabad", To: "Rajkot", Km: 216},
			{From: "Ahmedabad", To: "Surat", Km: 263},
			{From: "Ahmedabad", To: "Anand", Km: 89},
			{From: "Ahmedabad", To: "Bharuch", Km: 192},
			{From: "Ahmedabad", To: "Vadodara", Km: 110},
			{From: "Ahmedabad", To: "Bhavnagar", Km: 189},
			{From: "Ahmedabad", To: "Jamnagar", Km: 315},
			{From: "Ahmedabad", To: "Amreli", Km: 255},

			{From: "Rajkot", To: "Surat", Km: 296},
			{From: "Rajkot", To: "Jamnagar", Km: 92},
			{From: "Rajkot", To: "Bhavnagar", Km: 165},
			{From: "Rajkot", To: "Amreli", Km: 117},
			{From: "Rajkot", To: "Junagadh", Km: 104},

			{From: "Surat", To: "Vadodara", Km: 145},
			{From: "Surat", To: "Bharuch", Km: 66},
			{From: "Surat", To: "Anand", Km: 176},

			{From: "Vadodara", To: "Anand", Km: 46},
			{From: "Vadodara", To: "Bharuch", Km: 66},
			{From: "Vadodara", To: "Mehsana", Km: 148},
		},
		Coordinates: map[string]model.Coordinates{
			"Ahmedabad":        {Lat: 23.0225, Lon: 72.5714},
			"Amreli":           {Lat: 21.6032, Lon: 71.2221},
			"Anand":            {Lat: 22.5645, Lon: 72.9289},
			"Banaskanth":       {Lat: 24.3167, Lon: 71.7455},
			"Bharuch":          {Lat: 21.7051, Lon: 72.9959},
			"Bhavnagar":        {Lat: 21.7645, Lon: 72.1519},
			"Botad":            {Lat: 22.1706, Lon: 71.6644},
			"Chhota Udaipur":   {Lat: 22.3072, Lon: 74.0106},
			"Dahod":            {Lat: 22.8304, Lon: 74.2464},
			"Dang":             {Lat: 20.9167, Lon: 73.7000},
			"Devbhoomi Dwarka": {Lat: 22.2442, Lon: 68.9685},
			"Gandhinagar":      {Lat: 23.2156, Lon: 72.6369},
			"Gir Somnath":      {Lat: 20.9029, Lon: 70.3664},
			"Jamnagar":         {Lat: 22.4707, Lon: 70.0577},
			"Junagadh":         {Lat: 21.5222, Lon: 70.4579},
			"Kheda":            {Lat: 22.7548, Lon: 72.6853},
			"Kutch":            {Lat: 23.2420, Lon: 69.6669},
			"Mahisagar":        {Lat: 23.1664, Lon: 73.5852},
			"Mehsana":          {Lat: 23.5880, Lon: 72.3693},
			"Morbi":            {Lat: 22.8120, Lon: 70.8276},
			"Narmada":          {Lat: 21.8906, Lon: 73.5135},
			"Navsari":          {Lat: 20.9467, Lon: 72.9520},
			"Panchmahal":       {Lat: 22.7760, Lon: 73.6139},
			"Patan":            {Lat: 23.8493, Lon: 72.1266},
			"Porbandar":        {Lat: 21.6417, Lon: 69.6293},
			"Rajkot":           {Lat: 22.3039, Lon: 70.8022},
			"Sabarkantha":      {Lat: 23.6843, Lon: 72.9696},
			"Surat":            {Lat: 21.1702, Lon: 72.8311},
			"Surendranagar":    {Lat: 22.7237, Lon: 71.6372},
			"Tapi":             {Lat: 21.1437, Lon: 73.4184},
			"Vadodara":         {Lat: 22.3072, Lon: 73.1812},
			"Valsad":           {Lat: 20.5992, Lon: 72.9342},
			"Mansa":            {Lat: 23.4276, Lon: 72.6582},
			"Kalol":            {Lat: 23.2413, Lon: 72.4930},
			"Dehgam":           {Lat: 23.1670, Lon: 72.8228},
			"Sanand":           {Lat: 22.9934, Lon: 72.3789},
			"Bavla":            {Lat: 22.8396, Lon: 72.3551},
			"Dholka":           {Lat: 22.7169, Lon: 72.4590},
			"Dhandhluka":       {Lat: 22.3725, Lon: 71.9961},
			"Viramgam":         {Lat: 23.1189, Lon: 72.0520},
			"Mandal":           {Lat: 23.2840, Lon: 71.9168},
			"Detroj":           {Lat: 23.3667, Lon: 72.1833},
		},
		Aliases: map[string]string{
			"gandhinagar": "Gandhinagar",
			"ahmedabad":   "Ahmedabad",
			"amd":         "Ahmedabad",
			"mehsana":     "Mehsana",
			"mahesana":    "Mehsana",
			"rajkot":      "Rajkot",
			"surat":       "Surat",
			"anand":       "Anand",
			"bharuch":     "Bharuch",
			"vadodara":    "Vadodara",
			"baroda":      "Vadodara",
			"bhavnagar":   "Bhavnagar",
			"jamnagar":    "Jamnagar",
			"amreli":      "Amreli",
			"junagadh":    "Junagadh",
			"banaskanth":  "Banaskanth",
			"banaskantha": "Banaskanth",
			"sabarkantha": "Sabarkantha",
			"sabarkanth":  "Sabarkantha",
			"panchmahal":  "Panchmahal",
			"panchamahal": "Panchmahal",
			"kutch":       "Kutch",
			"kachchh":     "Kutch",
		},
	}
}
