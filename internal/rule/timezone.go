package rule

import (
	"sync"
	"time"
)

// Short timezone codes used by rule configurations. The monitoring estate
// normalizes every market to one of four reference zones.
const (
	TzNewYork = "NY"
	TzTokyo   = "TK"
	TzLondon  = "LN"
	TzGMT     = "GMT"
)

// TimezoneMap maps short codes to IANA zone names.
var TimezoneMap = map[string]string{
	TzNewYork: "America/New_York",
	TzTokyo:   "Asia/Tokyo",
	TzLondon:  "Europe/London",
	TzGMT:     "GMT",
}

// TimezoneMapReverse maps IANA zone names back to short codes.
var TimezoneMapReverse = map[string]string{
	"America/New_York": TzNewYork,
	"Asia/Tokyo":       TzTokyo,
	"Europe/London":    TzLondon,
	"GMT":              TzGMT,
}

// RegionTimezoneMap maps pipeline region codes to IANA zones.
var RegionTimezoneMap = map[string]string{
	"AMR":    "America/New_York",
	"ASI":    "Asia/Tokyo",
	"AUS":    "Asia/Tokyo",
	"CAN":    "America/New_York",
	"CHN":    "Asia/Tokyo",
	"EAS":    "Asia/Tokyo",
	"EUR":    "Europe/London",
	"GLOBAL": "GMT",
	"IND":    "Asia/Tokyo",
	"JPN":    "Asia/Tokyo",
	"MEA":    "Europe/London",
	"USA":    "America/New_York",
	"XJP":    "Asia/Tokyo",
}

// CountryTimezoneMap maps ISO country codes to short timezone codes.
var CountryTimezoneMap = map[string]string{
	"US": TzNewYork, "CA": TzNewYork, "MX": TzNewYork, "BR": TzNewYork,
	"AR": TzNewYork, "CL": TzNewYork, "CO": TzNewYork, "PE": TzNewYork,
	"VE": TzNewYork,

	"GB": TzLondon, "DE": TzLondon, "FR": TzLondon, "IT": TzLondon,
	"ES": TzLondon, "NL": TzLondon, "BE": TzLondon, "CH": TzLondon,
	"AT": TzLondon, "SE": TzLondon, "NO": TzLondon, "DK": TzLondon,
	"FI": TzLondon, "PL": TzLondon, "PT": TzLondon, "GR": TzLondon,
	"CZ": TzLondon, "HU": TzLondon, "RO": TzLondon, "IE": TzLondon,
	"TR": TzLondon, "ZA": TzLondon, "AE": TzLondon, "SA": TzLondon,
	"QA": TzLondon, "KW": TzLondon, "EG": TzLondon, "IL": TzLondon,
	"RU": TzLondon,

	"JP": TzTokyo, "CN": TzTokyo, "KR": TzTokyo, "TW": TzTokyo,
	"HK": TzTokyo, "SG": TzTokyo, "MY": TzTokyo, "TH": TzTokyo,
	"VN": TzTokyo, "ID": TzTokyo, "PH": TzTokyo, "IN": TzTokyo,
	"PK": TzTokyo, "AU": TzTokyo, "NZ": TzTokyo,
}

var (
	locMu    sync.Mutex
	locCache = map[string]*time.Location{}
)

// LocationFor resolves a short timezone code (or IANA name) to a cached
// *time.Location. Unknown inputs resolve to UTC.
func LocationFor(code string) *time.Location {
	name, ok := TimezoneMap[code]
	if !ok {
		name = code
	}
	locMu.Lock()
	defer locMu.Unlock()
	if loc, ok := locCache[name]; ok {
		return loc
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc = time.UTC
	}
	locCache[name] = loc
	return loc
}

// TimezoneForCountry returns the IANA zone for an ISO country code, or ""
// when the country is unmapped.
func TimezoneForCountry(country string) string {
	if code, ok := CountryTimezoneMap[country]; ok {
		return TimezoneMap[code]
	}
	return ""
}

// SupportedTimezones lists the short codes rules may carry.
func SupportedTimezones() []string {
	return []string{TzNewYork, TzTokyo, TzLondon, TzGMT}
}
