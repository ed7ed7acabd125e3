package config_test

import (
	"testing"

	"github.com/okian/menagerie/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9480")
			convey.So(cfg.GameAddr, convey.ShouldEqual, "ws://127.0.0.1:9777/ws")
			convey.So(cfg.RosterCapacity, convey.ShouldEqual, 3)
			convey.So(cfg.HutchCapacity, convey.ShouldEqual, 25)
			convey.So(cfg.AbilityLogCapacity, convey.ShouldEqual, 500)
			convey.So(cfg.CutoffSkewMS, convey.ShouldEqual, 1500)
			convey.So(cfg.PickerTimeoutMS, convey.ShouldEqual, 20_000)
		})
	})
}
