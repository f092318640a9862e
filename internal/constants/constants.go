package constants

const (
	APP_CART_SERVICE = "cart-service"

	AUDIENCE_CART    = "cart"
	ISSUER_AUTH      = "user-service"
	HEADER_SESSION   = "X-Session-Id"
	KEY_CACHE_CARTS  = "carts:%s"
	LOG_DIR          = "/var/log/"
	CONFIG_CART_FILE = "cart"
)
