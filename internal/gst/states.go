package gst

import "strings"

// stateNames maps GST state codes (the first two digits of a GSTIN, and the
// place-of-supply codes used in GST returns) to state names as Tally expects
// them in ledger masters.
var stateNames = map[string]string{
	"01": "Jammu and Kashmir",
	"02": "Himachal Pradesh",
	"03": "Punjab",
	"04": "Chandigarh",
	"05": "Uttarakhand",
	"06": "Haryana",
	"07": "Delhi",
	"08": "Rajasthan",
	"09": "Uttar Pradesh",
	"10": "Bihar",
	"11": "Sikkim",
	"12": "Arunachal Pradesh",
	"13": "Nagaland",
	"14": "Manipur",
	"15": "Mizoram",
	"16": "Tripura",
	"17": "Meghalaya",
	"18": "Assam",
	"19": "West Bengal",
	"20": "Jharkhand",
	"21": "Odisha",
	"22": "Chhattisgarh",
	"23": "Madhya Pradesh",
	"24": "Gujarat",
	"25": "Daman and Diu",
	"26": "Dadra and Nagar Haveli",
	"27": "Maharashtra",
	"28": "Andhra Pradesh",
	"29": "Karnataka",
	"30": "Goa",
	"31": "Lakshadweep",
	"32": "Kerala",
	"33": "Tamil Nadu",
	"34": "Puducherry",
	"35": "Andaman and Nicobar Islands",
	"36": "Telangana",
	"37": "Andhra Pradesh (New)",
	"38": "Ladakh",
}

// StateNameForCode returns the state name for a two-digit GST state code.
func StateNameForCode(code string) (string, bool) {
	name, ok := stateNames[code]
	return name, ok
}

// StateCodeForName returns the GST state code for a state name. Matching is
// case-insensitive and ignores surrounding whitespace.
func StateCodeForName(name string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for code, state := range stateNames {
		if strings.ToLower(state) == needle {
			return code, true
		}
	}
	return "", false
}

// ValidStateCode reports whether code is a known two-digit GST state code.
func ValidStateCode(code string) bool {
	_, ok := stateNames[code]
	return ok
}
