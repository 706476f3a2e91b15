package domain

type CardType string

const (
	CardTypeSD        CardType = "SD"
	CardTypeMicroSD   CardType = "micro SD"
	CardTypeSDXC      CardType = "SDXC"
	CardTypeMicroSDXC CardType = "micro SDXC"
	CardTypeSDHC      CardType = "SDHC"
	CardTypeMicroSDHC CardType = "micro SDHC"
)

var CardTypes = []CardType{CardTypeSD, CardTypeMicroSD, CardTypeSDXC, CardTypeMicroSDXC, CardTypeSDHC, CardTypeMicroSDHC}

type CardSpeed string

var CardSpeeds = []CardSpeed{"4", "10", "16", "32", "U1", "U3"}

type BatteryType string

const (
	BatteryLithiumPolymer BatteryType = "Lithium Polymer"
	BatteryLithiumIon     BatteryType = "Lithium Ion"
)

var BatteryTypes = []BatteryType{BatteryLithiumPolymer, BatteryLithiumIon}

type WifiConnectivity string

var WifiConnectivities = []WifiConnectivity{"none", "802.11 b/g/n"}

type BluetoothVersion string

var BluetoothVersions = []BluetoothVersion{"none", "4.0", "4.1", "4.2", "5.0"}

// Choice is a (value, label) pair for fields with a closed set of values.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func choicesOf[T ~string](vals []T) []Choice {
	out := make([]Choice, len(vals))
	for i, v := range vals {
		out[i] = Choice{Value: string(v), Label: string(v)}
	}
	return out
}

func oneOf[T ~string](vals []T, v T) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}

// FieldChoices lists the allowed values for the choice fields of the leaf
// models, keyed by field name.
func FieldChoices() map[string][]Choice {
	return map[string][]Choice{
		"card_type":         choicesOf(CardTypes),
		"speed":             choicesOf(CardSpeeds),
		"battery_type":      choicesOf(BatteryTypes),
		"wifi_connectivity": choicesOf(WifiConnectivities),
		"bluetooth":         choicesOf(BluetoothVersions),
	}
}

func (c CardType) Valid() bool         { return c == "" || oneOf(CardTypes, c) }
func (s CardSpeed) Valid() bool        { return s == "" || oneOf(CardSpeeds, s) }
func (b BatteryType) Valid() bool      { return b == "" || oneOf(BatteryTypes, b) }
func (w WifiConnectivity) Valid() bool { return w == "" || oneOf(WifiConnectivities, w) }
func (b BluetoothVersion) Valid() bool { return b == "" || oneOf(BluetoothVersions, b) }
