package main

// General API documentation for swaggo. Regenerate the docs package with `swag init -g cmd/vistora/docs.go`.
//
// @title           vistora API
// @version         1.0
// @description     Video restoration jobs, model catalog and per-user credit ledger.
//
// @contact.name   vistora maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
