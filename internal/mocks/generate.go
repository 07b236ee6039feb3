package mocks

//go:generate mockery --name ReportStore --srcpkg github.com/aevon-lab/trackgate/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name Dispatcher --srcpkg github.com/aevon-lab/trackgate/internal/tracking --output ./tracking --outpkg trackingmocks --with-expecter
