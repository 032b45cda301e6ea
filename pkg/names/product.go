package names

import "fmt"

// Product identifies a controller variant. The zero value is not a valid
// product.
type Product uint8

const (
	ProductUnknown Product = 0
	Product18v19   Product = 1
	Product24v13   Product = 2
	Product18v27   Product = 3
	Product24v21   Product = 4
	Product21v3    Product = 5
)

// VendorID is the USB vendor ID shared by every product and bootloader.
const VendorID = 0x1FFB

// ProductInfo describes one product variant.
type ProductInfo struct {
	Product   Product
	ShortName string // "18v19", used in settings files
	Name      string // "Motor Controller G2 18v19"
	USBID     uint16 // USB product ID in application mode
}

var products = []ProductInfo{
	{Product: Product18v19, ShortName: "18v19", Name: "Motor Controller G2 18v19", USBID: 0x00C3},
	{Product: Product24v13, ShortName: "24v13", Name: "Motor Controller G2 24v13", USBID: 0x00C5},
	{Product: Product18v27, ShortName: "18v27", Name: "Motor Controller G2 18v27", USBID: 0x00BF},
	{Product: Product24v21, ShortName: "24v21", Name: "Motor Controller G2 24v21", USBID: 0x00C1},
	{Product: Product21v3, ShortName: "21v3", Name: "Motor Controller G2 21v3", USBID: 0x00B7},
}

// Products returns every known product in registry order.
func Products() []ProductInfo {
	return append([]ProductInfo(nil), products...)
}

// LookupProduct returns the registry entry for p.
func LookupProduct(p Product) (ProductInfo, bool) {
	for _, info := range products {
		if info.Product == p {
			return info, true
		}
	}
	return ProductInfo{Product: p, ShortName: Unknown, Name: Unknown}, false
}

// ProductFromShortName resolves a settings-file product name such as "24v21".
func ProductFromShortName(name string) (Product, bool) {
	for _, info := range products {
		if info.ShortName == name {
			return info.Product, true
		}
	}
	return ProductUnknown, false
}

// ProductFromUSBID resolves an application-mode USB product ID.
func ProductFromUSBID(pid uint16) (Product, bool) {
	for _, info := range products {
		if info.USBID == pid {
			return info.Product, true
		}
	}
	return ProductUnknown, false
}

// Valid reports whether p is a registered product.
func (p Product) Valid() bool {
	_, ok := LookupProduct(p)
	return ok
}

func (p Product) String() string {
	if info, ok := LookupProduct(p); ok {
		return info.ShortName
	}
	return fmt.Sprintf("Product(%d)", uint8(p))
}
