package rest

import (
	"schoolsched/internal/domain"
	"schoolsched/internal/service/scheduling"
)

type classroomRequest struct {
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Equipment string `json:"equipment"`
}

func (r classroomRequest) input() scheduling.AddClassroomInput {
	return scheduling.AddClassroomInput{
		Name:      r.Name,
		Capacity:  r.Capacity,
		Equipment: r.Equipment,
	}
}

type classroomResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Equipment string `json:"equipment"`
}

func toClassroomResponse(c domain.Classroom) classroomResponse {
	return classroomResponse{
		ID:        c.ID,
		Name:      c.Name,
		Capacity:  c.Capacity,
		Equipment: c.Equipment,
	}
}

type classRequest struct {
	ClassID   string `json:"class_id"`
	Name      string `json:"name"`
	Teacher   string `json:"teacher"`
	RoomName  string `json:"room_name"`
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (r classRequest) input() scheduling.AddClassInput {
	return scheduling.AddClassInput{
		ClassID:   r.ClassID,
		Name:      r.Name,
		Teacher:   r.Teacher,
		RoomName:  r.RoomName,
		Day:       r.Day,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
	}
}

type classResponse struct {
	ID        int64  `json:"id"`
	ClassID   string `json:"class_id"`
	Name      string `json:"name"`
	Teacher   string `json:"teacher"`
	RoomName  string `json:"room_name"`
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func toClassResponse(s domain.ClassSession) classResponse {
	return classResponse{
		ID:        s.ID,
		ClassID:   s.ClassID,
		Name:      s.Name,
		Teacher:   s.Teacher,
		RoomName:  s.RoomName,
		Day:       s.Day,
		StartTime: s.StartTime.String(),
		EndTime:   s.EndTime.String(),
	}
}

type statsResponse struct {
	TotalClasses    int `json:"totalClasses"`
	TotalClassrooms int `json:"totalClassrooms"`
}

type deletedResponse struct {
	Msg string `json:"msg"`
}

type errorResponse struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Field    string         `json:"field,omitempty"`
	Conflict *classResponse `json:"conflict,omitempty"`
}
