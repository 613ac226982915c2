package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"volunteer-hub/internal/model"
	"volunteer-hub/internal/repository"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成导出文件失败")

// DefaultActivityDuration 活动未记录结束时间，日历事件按 2 小时计
const DefaultActivityDuration = 2 * time.Hour

// ExportService 导出业务接口
//
// 导出以字节返回，由 Handler 层设置 Content-Type / Content-Disposition 后写入响应
type ExportService interface {
	// ExportParticipants 导出活动参与者为 Excel
	ExportParticipants(ctx context.Context, activityID string) (*bytes.Buffer, string, error)
	// ExportActivityCalendar 导出活动为 iCalendar 单事件
	ExportActivityCalendar(ctx context.Context, activityID string) ([]byte, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

func (s *exportService) getActivity(ctx context.Context, id string) (*model.Activity, error) {
	activity, err := s.repo.Activity.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		s.logger.Error("查询活动失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return activity, nil
}

// ═══════════════════════════════════════════════════════════
// ExportParticipants
// ═══════════════════════════════════════════════════════════
//
// 表头：序号 | 姓名 | 邮箱 | 学号 | 报名时间
// 首行写入活动标题与日期，第二行为空行

func (s *exportService) ExportParticipants(ctx context.Context, activityID string) (*bytes.Buffer, string, error) {
	activity, err := s.getActivity(ctx, activityID)
	if err != nil {
		return nil, "", err
	}

	regs, err := s.repo.Registration.ListByActivity(ctx, activityID)
	if err != nil {
		s.logger.Error("查询参与者失败", zap.String("activity_id", activityID), zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "参与者"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	titleCell := fmt.Sprintf("%s（%s）", activity.Title, activity.Date.UTC().Format("2006-01-02 15:04"))
	_ = f.SetCellValue(sheetName, "A1", titleCell)
	_ = f.MergeCell(sheetName, "A1", "E1")

	headers := []string{"序号", "姓名", "邮箱", "学号", "报名时间"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	_ = f.SetCellStyle(sheetName, "A3", "E3", headerStyle)

	row := 4
	for _, r := range regs {
		if r.User == nil {
			continue
		}
		studentCode := ""
		if r.User.StudentCode != nil {
			studentCode = *r.User.StudentCode
		}
		values := []interface{}{
			row - 3,
			r.User.Name,
			r.User.Email,
			studentCode,
			r.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		row++
	}

	_ = f.SetColWidth(sheetName, "A", "A", 8)
	_ = f.SetColWidth(sheetName, "B", "B", 16)
	_ = f.SetColWidth(sheetName, "C", "C", 32)
	_ = f.SetColWidth(sheetName, "D", "E", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("生成 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("参与者_%s_%s.xlsx", safeFilename(activity.Title), activity.Date.UTC().Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportActivityCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportActivityCalendar(ctx context.Context, activityID string) ([]byte, string, error) {
	activity, err := s.getActivity(ctx, activityID)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//volunteer-hub//activities//ZH")

	event := cal.AddEvent(activity.ActivityID + "@volunteer-hub")
	event.SetDtStampTime(time.Now().UTC())
	event.SetCreatedTime(activity.CreatedAt.UTC())
	event.SetModifiedAt(activity.UpdatedAt.UTC())
	event.SetStartAt(activity.Date.UTC())
	event.SetEndAt(activity.Date.UTC().Add(DefaultActivityDuration))
	event.SetSummary(activity.Title)
	if activity.Location != nil {
		event.SetLocation(*activity.Location)
	}
	if activity.Description != nil {
		event.SetDescription(*activity.Description)
	}

	filename := fmt.Sprintf("%s.ics", safeFilename(activity.Title))
	return []byte(cal.Serialize()), filename, nil
}

// safeFilename 去掉文件名中的路径与引号字符
func safeFilename(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "\"", "", ":", "_", "\n", " ", "\r", " ")
	name = strings.TrimSpace(r.Replace(name))
	if name == "" {
		return "activity"
	}
	return name
}
