package bluetooth

// LookupManufacturer returns a short vendor name for a Bluetooth SIG company
// ID, or "" when unknown. Unnamed BLE adapters are labelled with it.
func LookupManufacturer(companyID uint16) string {
	return companyNames[companyID]
}

// Chip and phone vendors most often seen around a car: dongle chipsets
// first, then the phones and wearables that crowd a cabin.
var companyNames = map[uint16]string{
	0x000D: "Texas Inst.",
	0x000A: "Qualcomm",
	0x000F: "Broadcom",
	0x0059: "Nordic",
	0x015D: "Espressif",
	0x00AA: "Realtek",
	0x0672: "Shenzhen",
	0x0822: "Tuya",
	0x004C: "Apple",
	0x0075: "Samsung",
	0x00E0: "Google",
	0x0310: "Xiaomi",
	0x0157: "Huawei",
	0x038F: "Garmin",
	0x0087: "Bose",
	0x012D: "Sony",
	0x0131: "JBL",
	0x02FF: "Tile",
}
