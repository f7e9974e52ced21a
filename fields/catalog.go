// Package fields holds the static per-service field catalog: the
// integer-code-to-symbolic-name tables the dispatcher uses to rewrite data
// frame content, plus the service and QoS enumerations the rest of the
// module is built around.
package fields

import "strconv"

// ServiceID identifies one of the gateway's streamable services.
type ServiceID string

const (
	ADMIN                   ServiceID = "ADMIN"
	ACCT_ACTIVITY           ServiceID = "ACCT_ACTIVITY"
	CHART_EQUITY            ServiceID = "CHART_EQUITY"
	CHART_FUTURES           ServiceID = "CHART_FUTURES"
	QUOTE                   ServiceID = "QUOTE"
	OPTION                  ServiceID = "OPTION"
	LEVELONE_FUTURES        ServiceID = "LEVELONE_FUTURES"
	LEVELONE_FOREX          ServiceID = "LEVELONE_FOREX"
	LEVELONE_FUTURES_OPTIONS ServiceID = "LEVELONE_FUTURES_OPTIONS"
	NEWS_HEADLINE           ServiceID = "NEWS_HEADLINE"
	TIMESALE_EQUITY         ServiceID = "TIMESALE_EQUITY"
	TIMESALE_FUTURES        ServiceID = "TIMESALE_FUTURES"
	TIMESALE_OPTIONS        ServiceID = "TIMESALE_OPTIONS"
	TIMESALE_FOREX          ServiceID = "TIMESALE_FOREX"
	NASDAQ_BOOK             ServiceID = "NASDAQ_BOOK"
	NYSE_BOOK               ServiceID = "NYSE_BOOK"
	OPTIONS_BOOK            ServiceID = "OPTIONS_BOOK"
	LISTED_BOOK             ServiceID = "LISTED_BOOK"
)

// QOSLevel is the set of streaming quality-of-service tiers the gateway
// understands. The integer value is what goes on the wire.
type QOSLevel int

const (
	QOSExpress  QOSLevel = 0
	QOSRealTime QOSLevel = 1
	QOSFast     QOSLevel = 2
	QOSModerate QOSLevel = 3
	QOSSlow     QOSLevel = 4
	QOSDelayed  QOSLevel = 5
)

// catalog maps a service to its ordered field names, index == field code.
// Index 0 is always the key/symbol field by convention; it is never used
// for renaming (the wire carries it as "key", not "0").
var catalog = map[ServiceID][]string{
	CHART_EQUITY: {
		"key", "OPEN_PRICE", "HIGH_PRICE", "LOW_PRICE", "CLOSE_PRICE",
		"VOLUME", "SEQUENCE", "CHART_TIME", "CHART_DAY",
	},
	CHART_FUTURES: {
		"key", "OPEN_PRICE", "HIGH_PRICE", "LOW_PRICE", "CLOSE_PRICE",
		"VOLUME", "SEQUENCE", "CHART_TIME", "CHART_DAY",
	},
	QUOTE: {
		"key", "BID_PRICE", "ASK_PRICE", "LAST_PRICE", "BID_SIZE",
		"ASK_SIZE", "ASK_ID", "BID_ID", "TOTAL_VOLUME", "LAST_SIZE",
		"TRADE_TIME", "QUOTE_TIME", "HIGH_PRICE", "LOW_PRICE", "BID_TICK",
		"CLOSE_PRICE", "EXCHANGE_ID", "MARGINABLE", "SHORTABLE",
		"ISLAND_BID_DEPRECATED", "ISLAND_ASK_DEPRECATED",
		"ISLAND_VOLUME_DEPRECATED", "QUOTE_DAY", "TRADE_DAY", "VOLATILITY",
		"DESCRIPTION", "LAST_ID", "DIGITS", "OPEN_PRICE", "NET_CHANGE",
		"HIGH_52_WEEK", "LOW_52_WEEK", "PE_RATIO", "DIVIDEND_AMOUNT",
		"DIVIDEND_YIELD", "ISLAND_BID_SIZE_DEPRECATED",
		"ISLAND_ASK_SIZE_DEPRECATED", "NAV", "FUND_PRICE", "EXCHANGE_NAME",
		"DIVIDEND_DATE", "IS_REGULAR_MARKET_QUOTE", "IS_REGULAR_MARKET_TRADE",
		"REGULAR_MARKET_LAST_PRICE", "REGULAR_MARKET_LAST_SIZE",
		"REGULAR_MARKET_TRADE_TIME", "REGULAR_MARKET_TRADE_DAY",
		"REGULAR_MARKET_NET_CHANGE", "SECURITY_STATUS", "MARK",
		"QUOTE_TIME_IN_LONG", "TRADE_TIME_IN_LONG",
		"REGULAR_MARKET_TRADE_TIME_IN_LONG",
	},
	OPTION: {
		"key", "DESCRIPTION", "BID_PRICE", "ASK_PRICE", "LAST_PRICE",
		"HIGH_PRICE", "LOW_PRICE", "CLOSE_PRICE", "TOTAL_VOLUME",
		"OPEN_INTEREST", "VOLATILITY", "QUOTE_TIME", "TRADE_TIME",
		"MONEY_INTRINSIC_VALUE", "QUOTE_DAY", "TRADE_DAY",
		"EXPIRATION_YEAR", "MULTIPLIER", "DIGITS", "OPEN_PRICE", "BID_SIZE",
		"ASK_SIZE", "LAST_SIZE", "NET_CHANGE", "STRIKE_PRICE",
		"CONTRACT_TYPE", "UNDERLYING", "EXPIRATION_MONTH", "DELIVERABLES",
		"TIME_VALUE", "EXPIRATION_DAY", "DAYS_TO_EXPIRATION", "DELTA",
		"GAMMA", "THETA", "VEGA", "RHO", "SECURITY_STATUS",
		"THEORETICAL_OPTION_VALUE", "UNDERLYING_PRICE", "UV_EXPIRATION_TYPE",
		"MARK",
	},
	LEVELONE_FUTURES: {
		"key", "BID_PRICE", "ASK_PRICE", "LAST_PRICE", "BID_SIZE",
		"ASK_SIZE", "BID_ID", "ASK_ID", "TOTAL_VOLUME", "LAST_SIZE",
		"QUOTE_TIME", "TRADE_TIME", "HIGH_PRICE", "LOW_PRICE", "CLOSE_PRICE",
		"EXCHANGE_ID", "DESCRIPTION", "LAST_ID", "OPEN_PRICE", "NET_CHANGE",
		"FUTURE_PERCENT_CHANGE", "EXCHANGE_NAME", "SECURITY_STATUS",
		"OPEN_INTEREST", "MARK", "TICK", "TICK_AMOUNT", "PRODUCT",
		"FUTURE_PRICE_FORMAT", "FUTURE_TRADING_HOURS", "FUTURE_IS_TRADABLE",
		"FUTURE_MULTIPLIER", "FUTURE_IS_ACTIVE", "FUTURE_SETTLEMENT_PRICE",
		"FUTURE_ACTIVE_SYMBOL", "FUTURE_EXPIRATION_DATE",
	},
	LEVELONE_FOREX: {
		"key", "BID_PRICE", "ASK_PRICE", "LAST_PRICE", "BID_SIZE",
		"ASK_SIZE", "TOTAL_VOLUME", "LAST_SIZE", "QUOTE_TIME", "TRADE_TIME",
		"HIGH_PRICE", "LOW_PRICE", "CLOSE_PRICE", "EXCHANGE_ID",
		"DESCRIPTION", "OPEN_PRICE", "NET_CHANGE", "PERCENT_CHANGE",
		"EXCHANGE_NAME", "DIGITS", "SECURITY_STATUS", "TICK", "TICK_AMOUNT",
		"PRODUCT", "TRADING_HOURS", "IS_TRADABLE", "MARKET_MAKER",
		"HIGH_52_WEEK", "LOW_52_WEEK", "MARK",
	},
	LEVELONE_FUTURES_OPTIONS: {
		"key", "BID_PRICE", "ASK_PRICE", "LAST_PRICE", "BID_SIZE",
		"ASK_SIZE", "ASK_ID", "BID_ID", "TOTAL_VOLUME", "LAST_SIZE",
		"QUOTE_TIME", "TRADE_TIME", "HIGH_PRICE", "LOW_PRICE", "CLOSE_PRICE",
		"DESCRIPTION", "LAST_ID", "OPEN_PRICE", "NET_CHANGE",
		"FUTURE_PERCENT_CHANGE", "EXCHANGE_NAME", "SECURITY_STATUS",
		"OPEN_INTEREST", "MARK", "TICK", "TICK_AMOUNT", "FUTURE_MULTIPLIER",
		"FUTURE_SETTLEMENT_PRICE", "UNDERLYING_SYMBOL", "STRIKE_PRICE",
		"FUTURE_EXPIRATION_DATE",
	},
	NEWS_HEADLINE: {
		"key", "ERROR_CODE", "STORY_DATETIME", "HEADLINE_ID", "STATUS",
		"HEADLINE", "STORY_ID", "COUNT_FOR_KEYWORD", "KEYWORD_ARRAY",
		"IS_HOT", "STORY_SOURCE",
	},
	TIMESALE_EQUITY: {
		"key", "TRADE_TIME", "LAST_PRICE", "LAST_SIZE", "LAST_SEQUENCE",
	},
	TIMESALE_FUTURES: {
		"key", "TRADE_TIME", "LAST_PRICE", "LAST_SIZE", "LAST_SEQUENCE",
	},
	TIMESALE_OPTIONS: {
		"key", "TRADE_TIME", "LAST_PRICE", "LAST_SIZE", "LAST_SEQUENCE",
	},
	TIMESALE_FOREX: {
		"key", "TRADE_TIME", "LAST_PRICE", "LAST_SIZE", "LAST_SEQUENCE",
	},
	NASDAQ_BOOK: {
		"key", "MARKET_SNAPSHOT_TIME", "BIDS", "ASKS",
	},
	NYSE_BOOK: {
		"key", "MARKET_SNAPSHOT_TIME", "BIDS", "ASKS",
	},
	OPTIONS_BOOK: {
		"key", "MARKET_SNAPSHOT_TIME", "BIDS", "ASKS",
	},
	LISTED_BOOK: {
		"key", "MARKET_SNAPSHOT_TIME", "BIDS", "ASKS",
	},
	ACCT_ACTIVITY: {
		"key", "ACCOUNT", "MESSAGE_TYPE", "MESSAGE_DATA",
	},
}

// codeIndex is the reverse of catalog, built once at init for CodeOf.
var codeIndex = map[ServiceID]map[string]int{}

func init() {
	for svc, names := range catalog {
		idx := make(map[string]int, len(names))
		for code, name := range names {
			idx[name] = code
		}
		codeIndex[svc] = idx
	}
}

// AllFieldCodes returns the contiguous 0..N-1 field codes declared for a
// service, in ascending order. Used to build a "subscribe all fields"
// request when the caller omits an explicit field list.
func AllFieldCodes(service ServiceID) []int {
	names := catalog[service]
	codes := make([]int, len(names))
	for i := range names {
		codes[i] = i
	}
	return codes
}

// Symbolic returns the symbolic name for a field code within a service.
func Symbolic(service ServiceID, code int) (string, bool) {
	names, ok := catalog[service]
	if !ok || code < 0 || code >= len(names) {
		return "", false
	}
	return names[code], true
}

// CodeOf returns the field code for a symbolic name within a service.
func CodeOf(service ServiceID, name string) (int, bool) {
	code, ok := codeIndex[service][name]
	return code, ok
}

// SymbolForKey renames a wire key to its symbolic name if it is the decimal
// representation of a known field code for the service; otherwise it
// returns an empty string and ok=false.
func SymbolForKey(service ServiceID, key string) (string, bool) {
	code, err := strconv.Atoi(key)
	if err != nil {
		return "", false
	}
	return Symbolic(service, code)
}
