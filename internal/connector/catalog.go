package connector

// VenueKind distinguishes centralized exchanges from on-chain DEX venues;
// used by the arbitrage engine's risk score to penalize synthetic DEX order
// books (§9 Open Question decision, see DESIGN.md).
type VenueKind string

const (
	VenueKindCEX VenueKind = "CEX"
	VenueKindDEX VenueKind = "DEX"
)

// CatalogEntry is the static per-venue data the composite score in §4.2
// draws from: trust score, taker fee, and 24h volume. Grounded on the
// tiered venue table in the original's supported_exchanges.py.
type CatalogEntry struct {
	Venue       string
	Kind        VenueKind
	TrustScore  float64 // 0..1
	TakerFee    float64 // fraction, e.g. 0.001 = 10bps
	Volume24hUSD float64
}

// Catalog is the supported-venue table. Credentials are never stored here;
// they come from a CredentialsProvider at connector construction time.
var Catalog = map[string]CatalogEntry{
	"binance":  {Venue: "binance", Kind: VenueKindCEX, TrustScore: 0.95, TakerFee: 0.0010, Volume24hUSD: 18_000_000_000},
	"coinbase": {Venue: "coinbase", Kind: VenueKindCEX, TrustScore: 0.93, TakerFee: 0.0060, Volume24hUSD: 3_000_000_000},
	"kraken":   {Venue: "kraken", Kind: VenueKindCEX, TrustScore: 0.92, TakerFee: 0.0026, Volume24hUSD: 1_200_000_000},
	"okx":      {Venue: "okx", Kind: VenueKindCEX, TrustScore: 0.88, TakerFee: 0.0010, Volume24hUSD: 6_000_000_000},
	"uniswap":  {Venue: "uniswap", Kind: VenueKindDEX, TrustScore: 0.80, TakerFee: 0.0030, Volume24hUSD: 900_000_000},
}

// CompositeScore implements §4.2's selection formula:
// 0.4·trust + 0.3·(1/takerFee) + 0.3·min(vol24h/1e9, 10), normalized so the
// fee term doesn't dominate for venues with very small fees.
func CompositeScore(e CatalogEntry) float64 {
	feeTerm := 1.0
	if e.TakerFee > 0 {
		feeTerm = 1.0 / e.TakerFee
	}
	// Normalize the fee term into a comparable 0..~3 range (1/0.001 = 1000
	// would otherwise swamp the other two terms).
	normalizedFeeTerm := feeTerm / 1000.0

	volTerm := e.Volume24hUSD / 1_000_000_000
	if volTerm > 10 {
		volTerm = 10
	}

	return 0.4*e.TrustScore + 0.3*normalizedFeeTerm + 0.3*volTerm
}
