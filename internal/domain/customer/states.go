package customer

// States are the Australian state and territory codes a customer may use.
var States = []string{"ACT", "NSW", "NT", "QLD", "SA", "TAS", "VIC", "WA"}

var stateNames = map[string]string{
	"ACT": "Australian Capital Territory",
	"NSW": "New South Wales",
	"NT":  "Northern Territory",
	"QLD": "Queensland",
	"SA":  "South Australia",
	"TAS": "Tasmania",
	"VIC": "Victoria",
	"WA":  "Western Australia",
}

func ValidState(code string) bool {
	_, ok := stateNames[code]
	return ok
}

func StateName(code string) string {
	return stateNames[code]
}
