package models

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/tms-next/internal/constants"

	"gorm.io/gorm"
)

var (
	// ErrVehicleCarrierRequired 外包车辆必须关联承运商
	ErrVehicleCarrierRequired = errors.New("outsourced vehicle requires a carrier")
	// ErrVehicleDriverRequired 自有车辆必须关联司机
	ErrVehicleDriverRequired = errors.New("internal vehicle requires a driver")
	// ErrVehicleProfileInvalid 车辆路线配置非法
	ErrVehicleProfileInvalid = errors.New("vehicle profile invalid")
	// ErrVehiclePlateInvalid 车牌格式非法
	ErrVehiclePlateInvalid = errors.New("license plate invalid")
)

// 旧式 ABC1234 与 Mercosul ABC1D23
var licensePlatePattern = regexp.MustCompile(`^[A-Z]{3}[0-9][A-Z0-9][0-9]{2}$`)

// Driver 司机表
type Driver struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Name      string         `gorm:"type:varchar(200);not null" json:"name"`
	Document  string         `gorm:"type:varchar(20);index" json:"document,omitempty"`
	Phone     string         `gorm:"type:varchar(40)" json:"phone,omitempty"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Driver) TableName() string {
	return "drivers"
}

// Carrier 承运商表
type Carrier struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	Name      string         `gorm:"type:varchar(200);not null" json:"name"`
	Document  string         `gorm:"type:varchar(20);index" json:"document,omitempty"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Carrier) TableName() string {
	return "carriers"
}

// Vehicle 车辆表
type Vehicle struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                       // 主键
	LicensePlate string         `gorm:"type:varchar(10);uniqueIndex;not null" json:"license_plate"` // 车牌
	Name         string         `gorm:"type:varchar(120)" json:"name"`                              // 车辆名称
	Profile      string         `gorm:"type:varchar(20);not null" json:"profile"`                   // 路线配置
	RouteAreaID  *uint          `gorm:"index" json:"route_area_id,omitempty"`                       // 所属区域
	DriverID     *uint          `gorm:"index" json:"driver_id,omitempty"`                           // 司机
	CarrierID    *uint          `gorm:"index" json:"carrier_id,omitempty"`                          // 承运商
	IsOutsourced bool           `gorm:"not null;default:false" json:"is_outsourced"`                // 是否外包
	IsActive     bool           `gorm:"not null;default:true;index" json:"is_active"`               // 是否启用
	MaxWeightKG  Measure        `gorm:"type:decimal(12,3);not null;default:0" json:"max_weight_kg"` // 最大载重
	MaxVolumeM3  Measure        `gorm:"type:decimal(12,3);not null;default:0" json:"max_volume_m3"` // 最大容积
	CreatedAt    time.Time      `json:"created_at"`                                                 // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                                                 // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                             // 软删除时间

	RouteArea *RouteArea `gorm:"foreignKey:RouteAreaID" json:"route_area,omitempty"`
	Driver    *Driver    `gorm:"foreignKey:DriverID" json:"driver,omitempty"`
	Carrier   *Carrier   `gorm:"foreignKey:CarrierID" json:"carrier,omitempty"`
}

// TableName 指定表名
func (Vehicle) TableName() string {
	return "vehicles"
}

// NormalizeLicensePlate 车牌统一大写并去除分隔符
func NormalizeLicensePlate(plate string) string {
	replacer := strings.NewReplacer("-", "", " ", "")
	return strings.ToUpper(replacer.Replace(strings.TrimSpace(plate)))
}

// Validate 统一车牌格式并校验车辆归属与配置
func (v *Vehicle) Validate() error {
	if v == nil {
		return nil
	}
	v.LicensePlate = NormalizeLicensePlate(v.LicensePlate)
	if !licensePlatePattern.MatchString(v.LicensePlate) {
		return ErrVehiclePlateInvalid
	}
	switch v.Profile {
	case constants.VehicleProfileCar, constants.VehicleProfileHGV:
	default:
		return ErrVehicleProfileInvalid
	}
	if v.IsOutsourced && v.CarrierID == nil {
		return ErrVehicleCarrierRequired
	}
	if !v.IsOutsourced && v.DriverID == nil {
		return ErrVehicleDriverRequired
	}
	return nil
}
