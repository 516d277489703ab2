package mocks

//go:generate mockery --name Store --srcpkg github.com/nwrousell/dashboard/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
