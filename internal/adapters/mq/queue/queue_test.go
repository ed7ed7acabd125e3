package queue_test

import (
	"context"
	"testing"

	"github.com/okian/menagerie/internal/adapters/mq/queue"
	"github.com/okian/menagerie/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEnqueueDequeue(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("Requests are accepted up to capacity", func() {
			So(q.Enqueue(ctx, queue.NewRequest(model.Team{ID: "t1"})), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.NewRequest(model.Team{ID: "t2"})), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 2)

			Convey("And a third is rejected, not blocked", func() {
				So(q.Enqueue(ctx, queue.NewRequest(model.Team{ID: "t3"})), ShouldBeFalse)
			})

			Convey("And they dequeue in order", func() {
				ch := q.Dequeue(ctx)
				So((<-ch).Team.ID, ShouldEqual, "t1")
				So((<-ch).Team.ID, ShouldEqual, "t2")
			})
		})

		Convey("A closed queue rejects new requests", func() {
			So(q.Close(), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.NewRequest(model.Team{ID: "t1"})), ShouldBeFalse)
		})

		Convey("Closing twice is safe", func() {
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)
		})

		Convey("Pending requests drain after close", func() {
			So(q.Enqueue(ctx, queue.NewRequest(model.Team{ID: "t1"})), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			ch := q.Dequeue(ctx)
			req, ok := <-ch
			So(ok, ShouldBeTrue)
			So(req.Team.ID, ShouldEqual, "t1")

			_, ok = <-ch
			So(ok, ShouldBeFalse)
		})
	})
}
