package domain

// AssetType drives which pricing path is used for an asset.
type AssetType string

const (
	AssetFiat       AssetType = "fiat"
	AssetCrypto     AssetType = "crypto"
	AssetStock      AssetType = "stock"
	AssetETF        AssetType = "etf"
	AssetCommodity  AssetType = "commodity"
	AssetStablecoin AssetType = "stablecoin"
)

// IsValid reports whether t is a known asset type.
func (t AssetType) IsValid() bool {
	switch t {
	case AssetFiat, AssetCrypto, AssetStock, AssetETF, AssetCommodity, AssetStablecoin:
		return true
	}
	return false
}

// Asset is a tradable or holdable unit (currency, coin, security).
type Asset struct {
	AssetID   string    `json:"assetID"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	AssetType AssetType `json:"assetType"`
}

// IsFiat reports whether the asset is a fiat currency.
func (a Asset) IsFiat() bool { return a.AssetType == AssetFiat }

// UsesCryptoProvider reports whether the asset is priced by the crypto exchange provider.
func (a Asset) UsesCryptoProvider() bool {
	return a.AssetType == AssetCrypto || a.AssetType == AssetStablecoin
}
