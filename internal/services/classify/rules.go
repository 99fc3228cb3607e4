package classify

// Static rule tables. Evaluation precedence is fixed: the allow list
// overrides every deny rule, then exact-id denies, then pattern denies.

// stablecoinIDs are exact asset ids pegged to fiat.
var stablecoinIDs = map[string]struct{}{
	"tether": {}, "usdt": {},
	"usd-coin": {}, "usdc": {},
	"dai": {}, "multi-collateral-dai": {},
	"usds": {}, "sky-dollar": {},
	"ethena-usde": {}, "usde": {},
	"susds": {}, "staked-usds": {},
	"paypal-usd": {}, "pyusd": {},
	"usdt0":              {},
	"ethena-staked-usde": {}, "susde": {},
	"usd1":  {},
	"usdf":  {},
	"usdtb": {},
	"bfusd": {}, "binance-fiat-usd": {},
	"rlusd": {}, "ripple-usd": {},
	"usdg":              {},
	"usyc":              {},
	"first-digital-usd": {}, "fdusd": {},
	"ondo-us-dollar-yield": {}, "usdy": {},
	"bridged-usdc-polygon-pos-bridge": {}, "usdc-e": {},
	"polygon-bridged-dai": {},
	"usdai":               {},
	"usual-usd":           {}, "usd0": {},
	"usdd": {}, "decentralized-usd": {},
	"true-usd": {}, "tusd": {},
	"mantle-bridged-usdt": {},
	"gho":                 {}, "aave-gho": {},
	"steakhouse-usdc": {},
	"usdb":            {},
	"frax":            {}, "frax-finance": {},
	"lusd": {}, "liquity-usd": {},
	"crvusd": {}, "curve-usd": {},
	"gusd": {}, "gemini-dollar": {},
	"busd": {}, "binance-usd": {},
	"usdp": {}, "pax-dollar": {},
	"susd": {}, "nusd": {}, "synthetix-usd": {},
	"eurs": {}, "stasis-euro": {},
	"eurt": {}, "tether-eurt": {},
	"ageur": {}, "angle-euro": {},
	"mim": {}, "magic-internet-money": {},
	"dola": {}, "dola-usd": {},
	"aleph-zero-usd": {}, "azero-usd": {},
	"binance-bridged-usdt-bnb-smart-chain": {},
	"binance-bridged-usdc-bnb-smart-chain": {},
	"binance-peg-busd":                     {},
	"bridged-usdt":                         {},
	"bridged-usdc":                         {},
	"bridged-dai":                          {},
}

// stablecoinSymbols catches stablecoins listed under a different id.
var stablecoinSymbols = map[string]struct{}{
	"usdt": {}, "usdc": {}, "dai": {}, "usds": {}, "usde": {},
	"pyusd": {}, "tusd": {}, "busd": {}, "gusd": {}, "usdp": {},
	"lusd": {}, "frax": {}, "mim": {}, "gho": {}, "fdusd": {},
	"usdd": {}, "susd": {}, "eurs": {}, "eurt": {}, "usdy": {},
	"usdg": {},
}

// wrappedStakedIDs are exact ids of wrapped, staked, bridged and liquid
// staking tokens.
var wrappedStakedIDs = map[string]struct{}{
	"wrapped-bitcoin": {}, "wbtc": {},
	"tbtc": {}, "threshold-btc": {},
	"hbtc": {}, "huobi-btc": {},
	"renbtc": {}, "ren-btc": {},
	"sbtc": {}, "synth-sbtc": {},
	"fbtc": {}, "ignition-fbtc": {},
	"lbtc": {}, "lombard-btc": {}, "lombard-staked-btc": {},
	"solvbtc": {}, "solv-btc": {},
	"clbtc":   {},
	"enzobtc": {}, "enzo-btc": {},
	"arbitrum-bridged-btc": {},
	"cbbtc":                {}, "coinbase-wrapped-btc": {},
	"staked-ether": {}, "lido-staked-ether": {}, "steth": {},
	"wrapped-steth": {}, "wsteth": {},
	"wrapped-ether": {}, "weth": {},
	"wrapped-beacon-eth": {}, "wbeth": {},
	"wrapped-eeth": {}, "weeth": {}, "ether-fi-staked-eth": {},
	"rocket-pool-eth": {}, "reth": {},
	"coinbase-wrapped-staked-eth": {}, "cbeth": {},
	"frax-staked-ether": {}, "sfrxeth": {},
	"mantle-staked-ether": {}, "meth": {},
	"binance-staked-eth":  {},
	"lseth":               {}, "liquid-staked-eth": {},
	"kelp-dao-restaked-eth": {}, "rseth": {},
	"renzo-restaked-eth": {}, "ezeth": {},
	"oseth": {}, "stakewise-staked-eth": {},
	"l2-standard-bridged-weth-base": {},
	"arbitrum-bridged-weth":         {},
	"stader-ethx":                   {}, "ethx": {},
	"eeth":            {},
	"swell-staked-eth": {}, "sweth": {},
	"wrapped-solana": {}, "wrapped-sol": {},
	"jito-staked-sol": {}, "jitosol": {},
	"marinade-staked-sol": {}, "msol": {},
	"bnsol": {}, "binance-staked-sol": {},
	"wrapped-bnb": {}, "wbnb": {},
	"syrup-usdc":  {}, "syrupusdc": {},
	"khype":                   {},
	"l2-standard-bridged-weth": {},
	"polygon-bridged-weth":     {},
	"optimism-bridged-weth":    {},
}

// deniedPatterns match wrapped, staked, bridged and liquid-staking
// protocol naming in the asset id or name, case-insensitive.
var deniedPatterns = []string{
	`^wrapped-`,
	`^w[a-z]{2,6}$`,
	`-wrapped$`,
	`-wrapped-`,
	`^staked-`,
	`^st[a-z]{2,6}$`,
	`-staked$`,
	`-staked-`,
	`liquid.?staking`,
	`^bridged-`,
	`-bridged$`,
	`-bridged-`,
	`bridge[d]?$`,
	`restaked`,
	`^rs[a-z]{2,6}$`,
	`lido`,
	`rocket.?pool`,
	`coinbase.?wrapped`,
	`marinade`,
	`jito.?staked`,
	`ether\.?fi`,
	`swell`,
	`kelp.?dao`,
	`renzo`,
	`stader`,
	`stakewise`,
	`lombard`,
	`solv.?btc`,
	`threshold.?btc`,
}

// btcDerivativeSymbols are wrapped or synthetic BTC listings that the
// pattern rules alone would miss.
var btcDerivativeSymbols = map[string]struct{}{
	"wbtc": {}, "tbtc": {}, "hbtc": {}, "renbtc": {}, "sbtc": {},
	"fbtc": {}, "lbtc": {}, "solvbtc": {}, "clbtc": {}, "cbbtc": {},
	"enzobtc": {},
}

// allowedAssets are never denied, even when a pattern matches. Mostly
// native tokens whose names collide with the staking prefixes.
var allowedAssets = map[string]struct{}{
	"sui":         {},
	"sei-network": {}, "sei": {},
	"stk":         {},
	"the-sandbox": {}, "sand": {},
	"dogwifhat":   {}, "wif": {},
	"stellar": {},
	"stacks":  {},
	"storm":   {},
	"status":  {},
}
