package log

const (
	KEY_APP_NAME        = "app"
	KEY_TAG             = "tag"
	KEY_PROCESS         = "process"
	KEY_REQUEST_ID      = "requestId"
	KEY_REQUEST         = "request"
	KEY_REQUEST_BODY    = "requestBody"
	KEY_REQUEST_HEADER  = "requestHeader"
	KEY_REQUEST_HOST    = "host"
	KEY_REQUEST_IP      = "requesterIP"
	KEY_REQUEST_METHOD  = "requestMethod"
	KEY_REQUEST_URI     = "requestURI"
	KEY_REQUEST_URL     = "requestURL"
	KEY_CONFIG          = "config"
	KEY_CART_ID         = "cartId"
	KEY_CART            = "cart"
	KEY_CART_ITEM_ID    = "cartItemId"
	KEY_CART_ITEMS      = "cartItems"
	KEY_CART_SUMMARY    = "cartSummary"
	KEY_PRODUCT_ID      = "productId"
	KEY_VARIANT_ID      = "variantId"
	KEY_QUANTITY        = "quantity"
	KEY_ACCOUNT_ID      = "accountId"
	KEY_SESSION_ID      = "sessionId"
	KEY_CACHE_KEY       = "cacheKey"
	KEY_TOKEN           = "token"
	KEY_DB_URL          = "dbUrl"
	KEY_MERGED_QUANTITY = "mergedQuantity"
)
