package series

import "fmt"

var wmoLabels = map[int]string{
	0:  "Bezchmurnie",
	1:  "Przeważnie bezchmurnie",
	2:  "Częściowe zachmurzenie",
	3:  "Zachmurzenie całkowite",
	45: "Mgła",
	48: "Mgła osadzająca szadź",
	51: "Lekka mżawka",
	53: "Umiarkowana mżawka",
	55: "Gęsta mżawka",
	56: "Lekka marznąca mżawka",
	57: "Gęsta marznąca mżawka",
	61: "Słaby deszcz",
	63: "Umiarkowany deszcz",
	65: "Silny deszcz",
	66: "Lekki marznący deszcz",
	67: "Silny marznący deszcz",
	71: "Słaby śnieg",
	73: "Umiarkowany śnieg",
	75: "Silny śnieg",
	77: "Ziarna śniegu",
	80: "Słabe przelotne opady deszczu",
	81: "Umiarkowane przelotne opady deszczu",
	82: "Gwałtowne przelotne opady deszczu",
	85: "Słabe przelotne opady śniegu",
	86: "Silne przelotne opady śniegu",
	95: "Burza",
	96: "Burza z lekkim gradem",
	99: "Burza z silnym gradem",
}

// WeatherCodeLabel returns the Polish description of a WMO weather code.
func WeatherCodeLabel(code int) string {
	if l, ok := wmoLabels[code]; ok {
		return l
	}
	return fmt.Sprintf("Kod %d", code)
}
