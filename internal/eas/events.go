package eas

// eventNames maps SAME three-letter event codes to display names. The set
// covers the FCC Part 11 national codes plus the NWS and state/local codes a
// Sage ENDEC can relay. Codes missing from the table still decode; they just
// display as "Unknown".
var eventNames = map[string]string{
	"ADR": "Administrative Message",
	"AVA": "Avalanche Watch",
	"AVW": "Avalanche Warning",
	"BHW": "Biological Hazard Warning",
	"BLU": "Blue Alert",
	"BWW": "Boil Water Warning",
	"BZW": "Blizzard Warning",
	"CAE": "Child Abduction Emergency",
	"CDW": "Civil Danger Warning",
	"CEM": "Civil Emergency Message",
	"CFA": "Coastal Flood Watch",
	"CFW": "Coastal Flood Warning",
	"CHW": "Chemical Hazard Warning",
	"CWW": "Contaminated Water Warning",
	"DBA": "Dam Watch",
	"DBW": "Dam Break Warning",
	"DEW": "Contagious Disease Warning",
	"DMO": "Practice/Demo Warning",
	"DSW": "Dust Storm Warning",
	"EAN": "Emergency Action Notification",
	"EAT": "Emergency Action Termination",
	"EQW": "Earthquake Warning",
	"EVA": "Evacuation Watch",
	"EVI": "Evacuation Immediate",
	"EWW": "Extreme Wind Warning",
	"FCW": "Food Contamination Warning",
	"FFA": "Flash Flood Watch",
	"FFS": "Flash Flood Statement",
	"FFW": "Flash Flood Warning",
	"FLA": "Flood Watch",
	"FLS": "Flood Statement",
	"FLW": "Flood Warning",
	"FRW": "Fire Warning",
	"FSW": "Flash Freeze Warning",
	"FZW": "Freeze Warning",
	"HLS": "Hurricane Local Statement",
	"HMW": "Hazardous Materials Warning",
	"HUA": "Hurricane Watch",
	"HUW": "Hurricane Warning",
	"HWA": "High Wind Watch",
	"HWW": "High Wind Warning",
	"IBW": "Iceberg Warning",
	"IFW": "Industrial Fire Warning",
	"LAE": "Local Area Emergency",
	"LEW": "Law Enforcement Warning",
	"LSW": "Land Slide Warning",
	"NAT": "National Audible Test",
	"NIC": "National Information Center",
	"NMN": "Network Message Notification",
	"NPT": "National Periodic Test",
	"NST": "National Silent Test",
	"NUW": "Nuclear Power Plant Warning",
	"POS": "Power Outage Statement",
	"RHW": "Radiological Hazard Warning",
	"RMT": "Required Monthly Test",
	"RWT": "Required Weekly Test",
	"SMW": "Special Marine Warning",
	"SPS": "Special Weather Statement",
	"SPW": "Shelter in Place Warning",
	"SSA": "Storm Surge Watch",
	"SSW": "Storm Surge Warning",
	"SVA": "Severe Thunderstorm Watch",
	"SVR": "Severe Thunderstorm Warning",
	"SVS": "Severe Weather Statement",
	"TOA": "Tornado Watch",
	"TOE": "911 Telephone Outage Emergency",
	"TOR": "Tornado Warning",
	"TRA": "Tropical Storm Watch",
	"TRW": "Tropical Storm Warning",
	"TSA": "Tsunami Watch",
	"TSW": "Tsunami Warning",
	"VOW": "Volcano Warning",
	"WFA": "Wild Fire Watch",
	"WFW": "Wild Fire Warning",
	"WSA": "Winter Storm Watch",
	"WSW": "Winter Storm Warning",

	// Marine and ancillary NWS codes.
	"GLA": "Gale Watch",
	"GLW": "Gale Warning",
	"HFA": "Hurricane Force Wind Watch",
	"HFW": "Hurricane Force Wind Warning",
	"MAW": "Special Marine Warning",
	"SCY": "Small Craft Advisory",
	"SEA": "Hazardous Seas Watch",
	"SEW": "Hazardous Seas Warning",
	"SQW": "Snow Squall Warning",
	"SRA": "Storm Watch",
	"SRW": "Storm Warning",
	"SUA": "High Surf Watch",
	"SUW": "High Surf Warning",
	"WCA": "Wind Chill Watch",
	"WCW": "Wind Chill Warning",
}

// EventName returns the display name for a SAME event code, or "Unknown"
// when the code is not in the table.
func EventName(code string) string {
	if name, ok := eventNames[code]; ok {
		return name
	}
	return "Unknown"
}
