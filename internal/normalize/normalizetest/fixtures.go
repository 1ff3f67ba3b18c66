// Package normalizetest holds the name normalization fixture table shared by
// every package that keys the affiliate map.
package normalizetest

// Case is one raw product name and its expected normalized key.
type Case struct {
	Name string
	Raw  string
	Want string
}

// Cases is asserted against the matcher and the decorator so the two can never
// disagree on a key.
var Cases = []Case{
	{Name: "empty", Raw: "", Want: ""},
	{Name: "whitespace only", Raw: "   ", Want: ""},
	{Name: "plain lowercase", Raw: "Sony WH-1000XM5", Want: "sony wh-1000xm5"},
	{Name: "trim and collapse spaces", Raw: "  Apple   AirPods  Pro ", Want: "apple airpods pro"},
	{Name: "parenthetical year", Raw: "iPhone 15 Pro (2023)", Want: "iphone 15 pro"},
	{Name: "parenthetical region", Raw: "Nintendo Switch OLED (EU)", Want: "nintendo switch oled"},
	{Name: "scandinavian letters", Raw: "Dammsugare Ärlig Överlägsen Å", Want: "dammsugare arlig overlagsen a"},
	{Name: "trailing locale code", Raw: "Kindle Paperwhite SE", Want: "kindle paperwhite"},
	{Name: "trailing locale and year", Raw: "Pixel 8 2023 UK", Want: "pixel 8"},
	{Name: "trailing year", Raw: "MacBook Air M3 2024", Want: "macbook air m3"},
	{Name: "model number kept", Raw: "ASUS RTX 4070-Ti", Want: "asus rtx 4070-ti"},
	{Name: "duplicated brand", Raw: "Samsung Samsung Galaxy S24", Want: "samsung galaxy s24"},
	{Name: "duplicated brand mixed case", Raw: "LOGITECH Logitech MX Master 3S", Want: "logitech mx master 3s"},
	{Name: "locale inside name kept", Raw: "Bose QuietComfort Ultra", Want: "bose quietcomfort ultra"},
}
