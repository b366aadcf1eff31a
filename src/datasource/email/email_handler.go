// email_handler.go
package email

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"RentalDashboard/src/datasource/file"
	"RentalDashboard/src/rental"
	"RentalDashboard/src/storage"
)

// ====================== 邮件处理器实现 ======================

// DatasetAttachmentHandler 把邮件附件中的小时表/日表保存为数据文件
// 附件名包含 "hour" 写入 HourPath，包含 "day" 写入 DayPath，扩展名必须一致
type DatasetAttachmentHandler struct {
	TargetSubject string // 目标邮件主题关键词
	HourPath      string
	DayPath       string
	Loader        *file.Loader // 不为空时先校验附件再替换
	Logger        *storage.Logger

	processedUIDs map[uint32]bool // 已处理邮件UID记录
	mu            sync.RWMutex    // 保护processedUIDs的读写锁
}

func NewDatasetAttachmentHandler(subject, hourPath, dayPath string, loader *file.Loader, logger *storage.Logger) *DatasetAttachmentHandler {
	return &DatasetAttachmentHandler{
		TargetSubject: subject,
		HourPath:      hourPath,
		DayPath:       dayPath,
		Loader:        loader,
		Logger:        logger,
		processedUIDs: make(map[uint32]bool),
	}
}

// IsProcessed 检查邮件是否已处理过（线程安全）
func (h *DatasetAttachmentHandler) IsProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

// markAsProcessed 标记邮件为已处理（线程安全）
func (h *DatasetAttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 处理单个邮件，返回写入的文件
func (h *DatasetAttachmentHandler) Handle(email *Email) ([]string, error) {
	if h.IsProcessed(email.UID) {
		return nil, nil
	}

	if !strings.Contains(email.Subject, h.TargetSubject) {
		h.infof("跳过主题不匹配的邮件: %s", email.Subject)
		return nil, nil
	}

	h.infof("处理邮件: %s 发件人: %s 日期: %s",
		email.Subject, email.From, email.Date.Format("2006-01-02 15:04:05"))

	var saved []string
	for _, attachment := range email.Attachments {
		source, target, g, ok := h.classify(attachment.Filename)
		if !ok {
			h.infof("忽略附件: %s", attachment.Filename)
			continue
		}

		var validate func(string) error
		if h.Loader != nil {
			validate = func(tmpPath string) error {
				_, err := h.Loader.LoadTable(source, tmpPath, g)
				return err
			}
		}
		if err := file.ReplaceValidated(target, attachment.Content, validate); err != nil {
			return saved, fmt.Errorf("保存附件 %s 失败: %w", attachment.Filename, err)
		}

		h.infof("附件已保存到: %s", target)
		saved = append(saved, target)
	}

	// 有数据附件才标记为已处理
	if len(saved) > 0 {
		h.markAsProcessed(email.UID)
	}
	return saved, nil
}

// classify 按附件名判断是哪个数据源
func (h *DatasetAttachmentHandler) classify(filename string) (source, target string, g rental.Granularity, ok bool) {
	name := strings.ToLower(filepath.Base(filename))
	ext := filepath.Ext(name)

	switch {
	case strings.Contains(name, file.SourceHour):
		source, target, g = file.SourceHour, h.HourPath, rental.Hourly
	case strings.Contains(name, file.SourceDay):
		source, target, g = file.SourceDay, h.DayPath, rental.Daily
	default:
		return "", "", 0, false
	}

	if target == "" || !strings.EqualFold(ext, filepath.Ext(target)) {
		return "", "", 0, false
	}
	return source, target, g, true
}

func (h *DatasetAttachmentHandler) infof(format string, args ...interface{}) {
	if h.Logger != nil {
		h.Logger.Infof(format, args...)
	}
}
