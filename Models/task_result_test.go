package Models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTaskResult(t *testing.T) {
	finish := "10:00"
	task := Task{ID: "t1", Title: "Wipe tables", Type: TaskTypePhoto, ExpectedFinishTime: &finish}

	r := NewTaskResult(task, "2024-06-05")

	assert.Equal(t, "t1_2024-06-05", r.ID)
	assert.Equal(t, "t1", r.TaskID)
	assert.Equal(t, "Wipe tables", r.Title)
	assert.Equal(t, TaskTypePhoto, r.Type)
	assert.Equal(t, StatusNotDone, r.Status)
	assert.Equal(t, "2024-06-05", r.Date)
	assert.Equal(t, &finish, r.ExpectedFinishTime)
	assert.Nil(t, r.UserID)
	assert.Nil(t, r.PhotoURL)
	assert.Nil(t, r.ActualFinishTime)
}

func TestTaskResult_Transition(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		from    TaskResultStatus
		to      TaskResultStatus
		allowed bool
	}{
		{"staff completes", RoleStaff, StatusNotDone, StatusDone, true},
		{"staff sends photo to review", RoleStaff, StatusNotDone, StatusInReview, true},
		{"staff retries rejected", RoleStaff, StatusRejected, StatusInReview, true},
		{"staff cannot approve", RoleStaff, StatusInReview, StatusApproved, false},
		{"staff cannot mark missed", RoleStaff, StatusNotDone, StatusMissed, false},
		{"admin approves", RoleAdmin, StatusInReview, StatusApproved, true},
		{"admin rejects", RoleAdmin, StatusInReview, StatusRejected, true},
		{"admin marks missed", RoleAdmin, StatusNotDone, StatusMissed, true},
		{"admin reopens done", RoleAdmin, StatusDone, StatusNotDone, true},
		{"superadmin uses admin rules", RoleSuperadmin, StatusInReview, StatusApproved, true},
		{"approved is final", RoleSuperadmin, StatusApproved, StatusNotDone, false},
		{"unknown role gets staff rules", Role("barista"), StatusInReview, StatusApproved, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := TaskResult{Status: tt.from}.Transition(tt.role, tt.to)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole(" Admin "))
	assert.True(t, RoleStaff.Valid())
	assert.False(t, Role("owner").Valid())
	assert.Greater(t, RoleSuperadmin.Level(), RoleAdmin.Level())
	assert.Greater(t, RoleAdmin.Level(), RoleStaff.Level())

	fallback := FallbackProfile("u1")
	assert.Equal(t, RoleStaff, fallback.Role)
	assert.Equal(t, "", fallback.ShopID())
}

func TestTaskResult_ManualTransition_PhotoNeedsUpload(t *testing.T) {
	photo := TaskResult{ID: "t1_2024-06-05", Type: TaskTypePhoto, Status: StatusNotDone}

	assert.ErrorContains(t, photo.ManualTransition(RoleStaff, StatusDone), "uploading a photo")
	assert.Error(t, photo.ManualTransition(RoleStaff, StatusInReview))
	assert.NoError(t, photo.Transition(RoleStaff, StatusInReview))
	assert.NoError(t, photo.ManualTransition(RoleAdmin, StatusDone))
	assert.NoError(t, photo.ManualTransition(RoleAdmin, StatusMissed))

	checkbox := TaskResult{Type: TaskTypeCheckbox, Status: StatusNotDone}
	assert.NoError(t, checkbox.ManualTransition(RoleStaff, StatusDone))
}

func TestGeoPoint_DistanceTo(t *testing.T) {
	shop := GeoPoint{Latitude: 43.2380, Longitude: 76.9450}

	assert.InDelta(t, 0, shop.DistanceTo(shop), 1e-6)
	// one thousandth of a degree of latitude is about 111 m
	assert.InDelta(t, 111.2, shop.DistanceTo(GeoPoint{Latitude: 43.2390, Longitude: 76.9450}), 0.5)
	assert.True(t, GeoPoint{}.IsZero())
	assert.False(t, shop.IsZero())
}
